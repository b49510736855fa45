package config

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/fystack/walletcore/pkg/logger"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type AppConfig struct {
	RPC    *RPCConfig    `mapstructure:"rpc"`
	Signer *SignerConfig `mapstructure:"signer"`

	// SettleDelay is the pause between receiving a signed transaction and
	// broadcasting it. The host UI needs it to settle after the signing
	// round trip, so keep it configurable rather than a constant.
	SettleDelay time.Duration `mapstructure:"settle_delay"`

	// GreetingMessage is attested automatically after the first wallet
	// connection. Empty disables the auto-attest flow.
	GreetingMessage string `mapstructure:"greeting_message"`

	JournalPath     string `mapstructure:"journal_path"`
	JournalPassword string `mapstructure:"journal_password"`
}

type RPCConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SignerConfig struct {
	KeyPath       string        `mapstructure:"key_path"`
	KeyPassword   string        `mapstructure:"key_password"`
	DeviceName    string        `mapstructure:"device_name"`
	DeviceTimeout time.Duration `mapstructure:"device_timeout"`
}

// MarshalJSONMask serializes the config with secrets masked for logging.
func (c AppConfig) MarshalJSONMask() string {
	c.JournalPassword = strings.Repeat("*", len(c.JournalPassword))
	if c.RPC != nil {
		rpc := *c.RPC
		rpc.APIKey = strings.Repeat("*", len(rpc.APIKey))
		c.RPC = &rpc
	}
	if c.Signer != nil {
		signer := *c.Signer
		signer.KeyPassword = strings.Repeat("*", len(signer.KeyPassword))
		c.Signer = &signer
	}

	bytes, err := json.Marshal(c)
	if err != nil {
		logger.Error("Failed to marshal app config", err)
	}
	return string(bytes)
}

func InitViperConfig() {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".") // optionally look for config in the working directory
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()
	err := viper.ReadInConfig()
	if err != nil {
		log.Fatal("Fatal error config file: ", err)
	}

	log.Println("Reading config file:", viper.ConfigFileUsed())
	log.Println("Initialized config successfully!")
}

func setDefaults() {
	viper.SetDefault("settle_delay", "3s")
	viper.SetDefault("rpc.timeout", "30s")
	viper.SetDefault("signer.device_timeout", "30s")
	viper.SetDefault("journal_path", "./db/journal")
}

func LoadConfig() *AppConfig {
	var config AppConfig
	decoderConfig := &mapstructure.DecoderConfig{
		Result:           &config,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		log.Fatal("Failed to create decoder", err)
	}

	if err := decoder.Decode(viper.AllSettings()); err != nil {
		log.Fatal("Failed to decode config", err)
	}

	return &config
}
