// Package wallet holds the request state machine: reactive state cells for
// the connected identity and the single in-flight transaction and message
// requests, folded from bridge events by one consumer loop.
package wallet

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"sync"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"

	"github.com/fystack/walletcore/pkg/bridge"
	"github.com/fystack/walletcore/pkg/host"
	"github.com/fystack/walletcore/pkg/journal"
	"github.com/fystack/walletcore/pkg/logger"
	"github.com/fystack/walletcore/pkg/rpc"
	"github.com/fystack/walletcore/pkg/signer"
	"github.com/fystack/walletcore/pkg/wire"
)

// Options wires an Engine. Ingress, Dispatcher, Signer and RPC are required;
// a nil Journal disables submission history.
type Options struct {
	Ingress    *bridge.Ingress
	Dispatcher host.Dispatcher
	Signer     *signer.Signer
	RPC        *rpc.Client
	Journal    journal.Store

	// SettleDelay is the pause between receiving a signed transaction and
	// broadcasting it.
	SettleDelay time.Duration

	// Greeting, when non-empty, is attested automatically after the first
	// identity event of a connection.
	Greeting string
}

// Engine owns the request slots. Bridge events are folded by the consumer
// loop in arrival order; request methods and submission continuations stamp
// and check correlation tokens so a superseded request can never overwrite
// its successor's state.
type Engine struct {
	ingress  *bridge.Ingress
	dispatch host.Dispatcher
	signer   *signer.Signer
	rpc      *rpc.Client
	journal  journal.Store

	settleDelay time.Duration
	greeting    string

	identity *Cell[Identity]
	tx       *Cell[TxState]
	msg      *Cell[MsgState]

	// mu guards compound transitions: token check plus store must be atomic.
	mu      sync.Mutex
	ctx     context.Context
	greeted bool
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Ingress == nil {
		return nil, errors.New("engine requires a bridge ingress")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("engine requires a host dispatcher")
	}
	if opts.Signer == nil {
		return nil, errors.New("engine requires a signer")
	}
	if opts.RPC == nil {
		return nil, errors.New("engine requires an rpc client")
	}

	e := &Engine{
		ingress:     opts.Ingress,
		dispatch:    opts.Dispatcher,
		signer:      opts.Signer,
		rpc:         opts.RPC,
		journal:     opts.Journal,
		settleDelay: opts.SettleDelay,
		greeting:    opts.Greeting,
		identity:    NewCell(Identity{}),
		tx:          NewCell(TxState{}),
		msg:         NewCell(MsgState{}),
	}

	e.signer.BindIdentity(func() (wire.PublicKey, bool) {
		id := e.identity.Load()
		return id.Key, id.Connected
	})
	return e, nil
}

// Identity exposes the connected-account cell.
func (e *Engine) Identity() *Cell[Identity] { return e.identity }

// Transaction exposes the transaction slot cell.
func (e *Engine) Transaction() *Cell[TxState] { return e.tx }

// Message exposes the message slot cell.
func (e *Engine) Message() *Cell[MsgState] { return e.msg }

// Run drains the ingress until ctx is cancelled. Exactly one Run per engine;
// a second call fails with bridge.ErrAlreadyRunning.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()
	return e.ingress.Run(ctx, e.handleEvent)
}

func (e *Engine) runContext() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctx != nil {
		return e.ctx
	}
	return context.Background()
}

// Connect begins a wallet session for the active backend. The identity
// always arrives as an Identity bridge event, regardless of backend, so every
// completion shares the same fold path.
func (e *Engine) Connect() error {
	switch e.signer.Kind() {
	case signer.KindHost:
		status, err := e.dispatch.EstablishSession()
		if err != nil {
			return err
		}
		logger.Info("Session requested", "status", status)
		return nil

	case signer.KindHardware:
		return e.signer.Connect()

	default: // local
		pub, err := e.signer.PublicKey(context.Background())
		if err != nil {
			return err
		}
		e.ingress.Publish(bridge.Event{Type: bridge.EventIdentity, Payload: pub.String()})
		return nil
	}
}

// Disconnect clears the session. The message slot reports the disconnection;
// any in-flight continuations become stale and discard their results.
func (e *Engine) Disconnect() {
	e.mu.Lock()
	e.identity.Store(Identity{})
	e.msg.Store(MsgState{Phase: MsgError, Err: "wallet disconnected"})
	e.greeted = false
	e.mu.Unlock()
	logger.Info("Wallet disconnected")
}

// RequestSignTransaction stamps a fresh token into the transaction slot and
// dispatches the serialized transaction to the active backend. The previous
// request, if any, is superseded. The signed result re-enters through the
// ingress so synchronous and host-delegated backends share one fold path.
func (e *Engine) RequestSignTransaction(tx *wire.Transaction) (uuid.UUID, error) {
	token := uuid.New()
	e.mu.Lock()
	e.tx.Store(TxState{Phase: TxAwaitingSignature, Tx: tx, Token: token})
	e.mu.Unlock()
	logger.Info("Transaction signing requested", "token", token.String(), "signer", e.signer.Name())

	if e.signer.Kind() == signer.KindHost {
		raw, err := tx.Serialize()
		if err != nil {
			e.failTx(token, err.Error())
			return token, err
		}
		status, err := e.signer.Initiate(signer.OpTransaction, raw)
		if err != nil {
			e.failTx(token, err.Error())
			return token, err
		}
		logger.Debug("Transaction dispatched to host", "status", status)
		return token, nil
	}

	go e.signTransaction(token, tx)
	return token, nil
}

// RequestSignMessage stamps a fresh token into the message slot and
// dispatches the length-prefixed message bytes to the active backend.
func (e *Engine) RequestSignMessage(text string) (uuid.UUID, error) {
	token := uuid.New()
	e.mu.Lock()
	e.msg.Store(MsgState{Phase: MsgAwaitingSignature, Text: text, Token: token})
	e.mu.Unlock()
	logger.Info("Message signing requested", "token", token.String(), "signer", e.signer.Name())

	data := wire.EncodeMessageText(text)
	if e.signer.Kind() == signer.KindHost {
		status, err := e.signer.Initiate(signer.OpMessage, data)
		if err != nil {
			e.failMsg(token, err.Error())
			return token, err
		}
		logger.Debug("Message dispatched to host", "status", status)
		return token, nil
	}

	go e.signMessage(token, data)
	return token, nil
}

// signTransaction is the synchronous-backend continuation: sign the message
// bytes, fill the fee payer signature and publish the result as a bridge
// event. Errors fold into the slot only while the token is still current.
func (e *Engine) signTransaction(token uuid.UUID, tx *wire.Transaction) {
	msgBytes, err := tx.Message.Serialize()
	if err != nil {
		e.failTx(token, err.Error())
		return
	}
	raw, err := e.signer.Sign(e.runContext(), msgBytes)
	if err != nil {
		e.failTx(token, err.Error())
		return
	}
	sig, err := wire.SignatureFromBytes(raw)
	if err != nil {
		e.failTx(token, err.Error())
		return
	}

	signed := *tx
	signed.Signatures = append([]wire.Signature(nil), tx.Signatures...)
	if len(signed.Signatures) == 0 {
		signed.Signatures = make([]wire.Signature, 1)
	}
	signed.Signatures[0] = sig

	encoded, err := wire.EncodeTransaction(&signed)
	if err != nil {
		e.failTx(token, err.Error())
		return
	}
	if !e.txTokenCurrent(token) {
		logger.Debug("Discarding superseded transaction signature", "token", token.String())
		return
	}
	e.ingress.Publish(bridge.Event{Type: bridge.EventSignedTransaction, Payload: encoded})
}

func (e *Engine) signMessage(token uuid.UUID, data []byte) {
	raw, err := e.signer.Sign(e.runContext(), data)
	if err != nil {
		e.failMsg(token, err.Error())
		return
	}
	if !e.msgTokenCurrent(token) {
		logger.Debug("Discarding superseded message signature", "token", token.String())
		return
	}
	e.ingress.Publish(bridge.Event{Type: bridge.EventSignedMessage, Payload: base58.Encode(raw)})
}

// handleEvent is the single fold point for everything arriving over the
// bridge. It runs on the ingress consumer goroutine, in arrival order.
func (e *Engine) handleEvent(ev bridge.Event) {
	if ev.IsDeviceEvent() {
		e.signer.HandleDeviceEvent(ev)
		if ev.Type == bridge.EventDeviceOpened && e.signer.Kind() == signer.KindHardware {
			go e.queryHardwareIdentity()
		}
		return
	}

	switch ev.Type {
	case bridge.EventIdentity:
		e.handleIdentity(ev.Payload)
	case bridge.EventSignedTransaction:
		e.handleSignedTransaction(ev.Payload)
	case bridge.EventSignedMessage:
		e.handleSignedMessage(ev.Payload)
	default:
		logger.Warn("Ignoring unknown bridge event", "type", string(ev.Type))
	}
}

// queryHardwareIdentity asks the freshly opened device for its account key
// and feeds it back as an Identity event.
func (e *Engine) queryHardwareIdentity() {
	pub, err := e.signer.PublicKey(e.runContext())
	if err != nil {
		logger.Error("Failed to read hardware identity", err)
		return
	}
	e.ingress.Publish(bridge.Event{Type: bridge.EventIdentity, Payload: pub.String()})
}

func (e *Engine) handleIdentity(payload string) {
	key, err := wire.PublicKeyFromBase58(payload)
	if err != nil {
		logger.Warn("Ignoring undecodable identity event", "payload", payload, "error", err.Error())
		return
	}

	e.mu.Lock()
	e.identity.Store(Identity{Key: key, Connected: true})
	attest := e.greeting != "" && !e.greeted
	if attest {
		e.greeted = true
	}
	e.mu.Unlock()
	logger.Info("Wallet connected", "pubkey", key.String())

	if attest {
		// First connection of a session attests the greeting text.
		go func() {
			if _, err := e.RequestSignMessage(e.greeting); err != nil {
				logger.Error("Failed to attest greeting", err)
			}
		}()
	}
}

func (e *Engine) handleSignedTransaction(payload string) {
	e.mu.Lock()
	st := e.tx.Load()
	if st.Phase != TxAwaitingSignature {
		e.mu.Unlock()
		logger.Warn("Ignoring unsolicited signed transaction", "phase", st.Phase.String())
		return
	}

	tx, err := wire.DecodeTransaction(payload)
	if err != nil {
		e.tx.Store(TxState{Phase: TxError, Err: err.Error(), Token: st.Token})
		e.mu.Unlock()
		logger.Error("Signed transaction undecodable", err)
		return
	}
	if len(tx.Signatures) == 0 {
		e.tx.Store(TxState{Phase: TxError, Err: "signed transaction carries no signatures", Token: st.Token})
		e.mu.Unlock()
		return
	}
	if !e.matchesPending(st.Tx, tx) {
		e.mu.Unlock()
		logger.Warn("Discarding signed transaction for a superseded request", "token", st.Token.String())
		return
	}

	e.tx.Store(TxState{Phase: TxSigned, Tx: tx, Token: st.Token})
	e.mu.Unlock()
	logger.Info("Transaction signed", "signature", tx.Signatures[0].String())

	go e.submit(e.runContext(), st.Token, tx)
}

// matchesPending reports whether a signed transaction answers the request
// currently holding the slot. Bridge events carry no correlation token, so
// the message bytes of the pending unsigned transaction are the identity: a
// late result for a superseded request carries a different message and is
// discarded.
func (e *Engine) matchesPending(pending, signed *wire.Transaction) bool {
	if pending == nil {
		return false
	}
	want, err := pending.Message.Serialize()
	if err != nil {
		return false
	}
	got, err := signed.Message.Serialize()
	if err != nil {
		return false
	}
	return bytes.Equal(want, got)
}

func (e *Engine) handleSignedMessage(payload string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ms := e.msg.Load()
	id := e.identity.Load()
	if ms.Phase != MsgAwaitingSignature || !id.Connected {
		e.msg.Store(MsgState{Phase: MsgError, Err: "no message available"})
		logger.Warn("Signed message with no pending request")
		return
	}

	sig, err := wire.DecodeSignature(payload)
	if err != nil {
		e.msg.Store(MsgState{Phase: MsgError, Text: ms.Text, Err: err.Error(), Token: ms.Token})
		return
	}

	if !ed25519.Verify(id.Key[:], wire.EncodeMessageText(ms.Text), sig[:]) {
		e.msg.Store(MsgState{Phase: MsgError, Text: ms.Text, Err: "signature verification failed", Token: ms.Token})
		logger.Warn("Message signature failed verification", "pubkey", id.Key.String())
		return
	}

	e.msg.Store(MsgState{Phase: MsgSigned, Text: ms.Text, Signature: sig, Token: ms.Token})
	logger.Info("Message signed", "signature", sig.String())
}

// submit broadcasts a signed transaction after the settle delay. Exactly one
// attempt; the outcome folds into the slot only while the token is current,
// and every broadcast is journaled either way.
func (e *Engine) submit(ctx context.Context, token uuid.UUID, tx *wire.Transaction) {
	if !e.settle(ctx) {
		return
	}

	sig, err := e.rpc.SendTransaction(ctx, tx)
	if err != nil {
		e.appendJournal(journal.Entry{
			Signature: tx.Signatures[0].String(),
			Status:    journal.StatusRejected,
			Reason:    err.Error(),
		})
		if e.failTx(token, err.Error()) {
			logger.Error("Transaction rejected", err)
		}
		return
	}

	e.appendJournal(journal.Entry{Signature: sig.String(), Status: journal.StatusConfirmed})

	e.mu.Lock()
	if cur := e.tx.Load(); cur.Token == token {
		e.tx.Store(TxState{Phase: TxNone})
	}
	e.mu.Unlock()
	logger.Info("Transaction submitted", "signature", sig.String())
}

func (e *Engine) settle(ctx context.Context) bool {
	if e.settleDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(e.settleDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// failTx folds an error into the transaction slot if token is still current.
// Reports whether the fold happened.
func (e *Engine) failTx(token uuid.UUID, reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cur := e.tx.Load()
	if cur.Token != token {
		logger.Debug("Discarding stale transaction error", "token", token.String(), "reason", reason)
		return false
	}
	e.tx.Store(TxState{Phase: TxError, Tx: cur.Tx, Err: reason, Token: token})
	return true
}

func (e *Engine) failMsg(token uuid.UUID, reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cur := e.msg.Load()
	if cur.Token != token {
		logger.Debug("Discarding stale message error", "token", token.String(), "reason", reason)
		return false
	}
	e.msg.Store(MsgState{Phase: MsgError, Text: cur.Text, Err: reason, Token: token})
	return true
}

func (e *Engine) txTokenCurrent(token uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tx.Load().Token == token
}

func (e *Engine) msgTokenCurrent(token uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.msg.Load().Token == token
}

func (e *Engine) appendJournal(entry journal.Entry) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Append(entry); err != nil {
		logger.Error("Failed to journal submission", err)
	}
}
