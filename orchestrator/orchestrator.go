// Package orchestrator drives one ecosystem's transaction builder through
// the observable purchase steps and hands the result to the verification
// gateway. It owns attempt state but not mutual exclusion across UI
// surfaces; callers must not start a second attempt while one is in flight.
package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/seedlabs/entrygate/clients"
	"github.com/seedlabs/entrygate/idempotency"
	"github.com/seedlabs/entrygate/logger"
	"github.com/seedlabs/entrygate/metrics"
	"github.com/seedlabs/entrygate/pricing"
	"github.com/seedlabs/entrygate/types"
)

// StepType enumerates every observable phase of a purchase attempt, so
// consumers can handle the stream exhaustively.
type StepType string

const (
	StepConnecting     StepType = "connecting"
	StepSwitchingChain StepType = "switching_chain"
	StepSending        StepType = "sending"
	StepSent           StepType = "sent"
	StepConfirming     StepType = "confirming"
	StepSuccess        StepType = "success"
	StepPending        StepType = "pending"
	StepError          StepType = "error"
)

// Step is one event of the purchase progress stream. TxHash is set from
// StepSent onward.
type Step struct {
	Type    StepType
	Message string
	TxHash  string
}

// StepFunc receives progress events. It is called synchronously from the
// purchase flow and must not block.
type StepFunc func(Step)

// Verifier is the gateway surface the orchestrator needs.
type Verifier interface {
	Verify(ctx context.Context, req *types.VerificationRequest) (*types.VerificationResult, error)
}

// PurchaseParams carries the product and optional invite for one attempt.
type PurchaseParams struct {
	Product types.PaymentProduct
	Invite  *types.InviteRecord
}

// Orchestrator runs one payment attempt at a time for a single ecosystem.
type Orchestrator struct {
	builder  clients.Builder
	verifier Verifier
	keys     *idempotency.Manager
	log      logger.Logger
	rec      metrics.Recorder

	running atomic.Bool
}

func New(builder clients.Builder, verifier Verifier, keys *idempotency.Manager, log logger.Logger, rec metrics.Recorder) *Orchestrator {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Orchestrator{builder: builder, verifier: verifier, keys: keys, log: log, rec: rec}
}

// Run executes the full flow: connect, align network, send, verify. The
// returned attempt reflects the final state; the verification result is
// non-nil whenever the gateway was reached. The idempotency key is cleared
// only on terminal success, so pending and failed attempts retry with the
// same key.
func (o *Orchestrator) Run(ctx context.Context, params PurchaseParams, onStep StepFunc) (*types.PaymentAttempt, *types.VerificationResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, nil, types.Errorf(types.ErrAttemptInProgress, "a payment attempt is already in progress")
	}
	defer o.running.Store(false)

	if onStep == nil {
		onStep = func(Step) {}
	}

	priceUSD := pricing.Resolve(params.Invite, params.Product.BaseAmountUSD)
	key, err := o.keys.GetOrCreateKey()
	if err != nil {
		return nil, nil, err
	}

	attempt := &types.PaymentAttempt{
		IdempotencyKey: key,
		ProductID:      params.Product.ID,
		Ecosystem:      o.builder.Ecosystem(),
		AmountUSD:      priceUSD,
		Invite:         params.Invite,
		State:          types.StateIdle,
	}

	if pricing.IsFree(priceUSD) {
		// Free activation: no wallet, no transaction, straight to the
		// verification service with a zero amount override.
		return o.verify(ctx, attempt, onStep, "")
	}

	emit := func(s Step) {
		o.rec.IncCounter(string(s.Type), map[string]string{"ecosystem": attempt.Ecosystem.String()})
		onStep(s)
	}

	attempt.State = types.StateConnecting
	emit(Step{Type: StepConnecting, Message: "Connecting to your wallet..."})
	desc, err := o.builder.Connect(ctx)
	if err != nil {
		return attempt, nil, o.fail(attempt, emit, err)
	}
	o.log.Debug("wallet connected", map[string]any{
		"ecosystem": attempt.Ecosystem.String(),
		"wallet":    desc.Label,
	})
	attempt.Chain = attempt.Ecosystem.ChainType()

	if switcher, ok := o.builder.(clients.NetworkSwitcher); ok {
		attempt.State = types.StateSwitchingChain
		emit(Step{Type: StepSwitchingChain, Message: "Checking wallet network..."})
		if err := switcher.EnsureNetwork(ctx); err != nil {
			return attempt, nil, o.fail(attempt, emit, err)
		}
	}

	attempt.State = types.StateSending
	emit(Step{Type: StepSending, Message: "Review and approve the payment in your wallet"})
	receipt, err := o.builder.SendEntryFee(ctx, priceUSD)
	if err != nil {
		return attempt, nil, o.fail(attempt, emit, err)
	}
	attempt.Chain = receipt.Chain
	attempt.State = types.StateSent
	emit(Step{Type: StepSent, Message: "Payment submitted", TxHash: receipt.TxHash})

	o.log.Info("payment submitted", map[string]any{
		"ecosystem": attempt.Ecosystem.String(),
		"txHash":    receipt.TxHash,
		"amountUsd": priceUSD,
	})

	result, verr := o.verifyReceipt(ctx, attempt, receipt, emit)
	return attempt, result, verr
}

func (o *Orchestrator) verifyReceipt(ctx context.Context, attempt *types.PaymentAttempt, receipt *clients.SendReceipt, emit func(Step)) (*types.VerificationResult, error) {
	attempt.State = types.StateConfirming
	emit(Step{Type: StepConfirming, Message: "Confirming your payment...", TxHash: receipt.TxHash})

	req := o.buildRequest(attempt)
	req.TxHash = receipt.TxHash
	req.ClaimedSenderWallet = receipt.SenderWallet
	req.Chain = receipt.Chain

	return o.settleResult(ctx, attempt, req, emit, receipt.TxHash)
}

// verify handles the free-activation path, which skips the builder.
func (o *Orchestrator) verify(ctx context.Context, attempt *types.PaymentAttempt, onStep StepFunc, txHash string) (*types.PaymentAttempt, *types.VerificationResult, error) {
	emit := func(s Step) {
		o.rec.IncCounter(string(s.Type), map[string]string{"ecosystem": attempt.Ecosystem.String()})
		onStep(s)
	}
	attempt.State = types.StateConfirming
	attempt.Chain = attempt.Ecosystem.ChainType()
	emit(Step{Type: StepConfirming, Message: "Activating your access..."})

	req := o.buildRequest(attempt)
	if req.AmountOverrideUSD == nil {
		zero := 0.0
		req.AmountOverrideUSD = &zero
	}
	result, err := o.settleResult(ctx, attempt, req, emit, txHash)
	return attempt, result, err
}

func (o *Orchestrator) buildRequest(attempt *types.PaymentAttempt) *types.VerificationRequest {
	req := &types.VerificationRequest{
		ChainType:      attempt.Ecosystem.ChainType(),
		Chain:          attempt.Chain,
		ProductID:      attempt.ProductID,
		IdempotencyKey: attempt.IdempotencyKey,
	}
	if attempt.Invite != nil {
		req.InviteCodeID = attempt.Invite.ID
		amount := attempt.AmountUSD
		req.AmountOverrideUSD = &amount
	}
	return req
}

func (o *Orchestrator) settleResult(ctx context.Context, attempt *types.PaymentAttempt, req *types.VerificationRequest, emit func(Step), txHash string) (*types.VerificationResult, error) {
	start := time.Now()
	result, err := o.verifier.Verify(ctx, req)
	o.rec.ObserveLatency("verify", time.Since(start), map[string]string{"ecosystem": attempt.Ecosystem.String()})
	if err != nil {
		return nil, o.fail(attempt, emit, err)
	}

	switch result.Status {
	case types.VerificationSuccess:
		if err := o.keys.ClearKey(); err != nil {
			o.log.Warn("clearing idempotency key failed", map[string]any{"error": err.Error()})
		}
		attempt.State = types.StateSuccess
		emit(Step{Type: StepSuccess, Message: "Payment confirmed", TxHash: txHash})

	case types.VerificationPending:
		// Non-terminal: the key stays so a later retry dedupes correctly.
		attempt.State = types.StatePending
		emit(Step{Type: StepPending, Message: "Awaiting confirmation. Your access will unlock shortly.", TxHash: txHash})

	case types.VerificationError:
		// The service examined the claim and rejected it. The key stays so
		// a corrected retry cannot double-credit.
		attempt.State = types.StateError
		msg := result.Message
		if msg == "" {
			msg = "Verification failed. Your payment was not credited; you can retry safely."
		}
		emit(Step{Type: StepError, Message: msg, TxHash: txHash})
	}
	return result, nil
}

// fail surfaces the error as a step event and returns the attempt to idle
// with the idempotency key intact.
func (o *Orchestrator) fail(attempt *types.PaymentAttempt, emit func(Step), err error) error {
	o.log.Error("payment attempt failed", map[string]any{
		"ecosystem": attempt.Ecosystem.String(),
		"state":     string(attempt.State),
		"error":     err.Error(),
	})
	emit(Step{Type: StepError, Message: friendlyMessage(err)})
	attempt.State = types.StateIdle
	return err
}

func friendlyMessage(err error) string {
	var gateErr *types.Error
	if errors.As(err, &gateErr) {
		if gateErr.Code == types.ErrUserRejected {
			return "Request rejected in wallet. You can try again whenever you are ready."
		}
		return gateErr.Message
	}
	return err.Error()
}
