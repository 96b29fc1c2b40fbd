package fgvoter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gordian-engine/gfinality/fg/fgconsensus"
	"github.com/gordian-engine/gfinality/internal/gchan"
	"github.com/gordian-engine/gfinality/internal/glog"
)

// IncomingMessage is one item on a round's incoming message stream.
// Exactly one of Msg and Err is meaningful;
// a non-nil Err is fatal to the round.
type IncomingMessage struct {
	Msg fgconsensus.SignedMessage
	Err error
}

// RoundConfig is the configuration for a [VotingRound].
// All fields other than LastRoundState and LastRoundStateUpdates are required,
// except that OutgoingMessages may be nil for [RoleSilent].
type RoundConfig struct {
	Env    Environment
	Ledger Ledger

	Role Role

	// Verified votes and primary block hints for this round.
	// Closing the channel marks the stream exhausted;
	// the round keeps running on timers and previous-round updates.
	IncomingMessages <-chan IncomingMessage

	// Votes and hints this driver casts.
	OutgoingMessages chan<- fgconsensus.Message

	// One-shot timers bounding how long the driver waits
	// before casting each vote.
	// Each must resolve at most once.
	PrevoteTimer   <-chan struct{}
	PrecommitTimer <-chan struct{}

	// Snapshot of the previous round's state at construction time,
	// if one existed.
	// Nil for the first round and for catch-up rounds.
	LastRoundState *fgconsensus.RoundState

	// Later snapshots of the previous round's state.
	// May be nil if no updates will ever arrive.
	LastRoundStateUpdates <-chan fgconsensus.RoundState
}

// VotingRound drives one finality round from start to safe completion.
// It sequences the primary block hint, the prevote, and the precommit,
// while importing incoming votes into its ledger,
// and it decides when the round may stop running.
//
// Use [NewVotingRound] to create a VotingRound,
// then call [VotingRound.Run] from a dedicated goroutine.
type VotingRound struct {
	log *slog.Logger

	env    Environment
	ledger Ledger

	role Role

	incoming <-chan IncomingMessage
	outgoing chan<- fgconsensus.Message

	prevoteTimer, precommitTimer           <-chan struct{}
	prevoteTimerReady, precommitTimerReady bool

	lastRoundState        *fgconsensus.RoundState
	lastRoundStateUpdates <-chan fgconsensus.RoundState

	phase Phase

	// Most recent primary block hint from the round's designated primary.
	primaryBlock *fgconsensus.Target

	// Set when the round completes with a finalized block.
	bestCommit *fgconsensus.Commit

	ran bool
}

// NewVotingRound validates cfg and returns a driver for one round.
func NewVotingRound(log *slog.Logger, cfg RoundConfig) (*VotingRound, error) {
	if cfg.Env == nil {
		return nil, errors.New("RoundConfig.Env must not be nil")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("RoundConfig.Ledger must not be nil")
	}

	switch cfg.Role {
	case RoleSilent, RoleVoter, RolePrimary:
		// Okay.
	default:
		return nil, fmt.Errorf("invalid RoundConfig.Role %s", cfg.Role)
	}
	if cfg.Role.IsActive() && cfg.OutgoingMessages == nil {
		return nil, fmt.Errorf("RoundConfig.OutgoingMessages must not be nil for role %s", cfg.Role)
	}

	return &VotingRound{
		log: log.With("round", cfg.Ledger.Number()),

		env:    cfg.Env,
		ledger: cfg.Ledger,

		role: cfg.Role,

		incoming: cfg.IncomingMessages,
		outgoing: cfg.OutgoingMessages,

		prevoteTimer:   cfg.PrevoteTimer,
		precommitTimer: cfg.PrecommitTimer,

		lastRoundState:        cfg.LastRoundState,
		lastRoundStateUpdates: cfg.LastRoundStateUpdates,

		phase: PhaseStart,
	}, nil
}

// Phase returns the driver's current phase.
// Only safe to call from the goroutine running [VotingRound.Run],
// or before Run starts or after it returns.
func (vr *VotingRound) Phase() Phase {
	return vr.phase
}

// Run drives the round until it is safe to stop,
// the incoming stream fails, or ctx is canceled.
// A nil return means the round completed safely;
// check [VotingRound.BestCommit] afterwards.
//
// Run must be called at most once.
func (vr *VotingRound) Run(ctx context.Context) error {
	if vr.ran {
		panic(errors.New("BUG: (*VotingRound).Run called more than once"))
	}
	vr.ran = true

	// Advance before blocking for the first event,
	// so a driver constructed with everything it needs
	// (a primary with a usable previous-round snapshot, say)
	// acts immediately.
	for {
		if err := vr.advancePhase(ctx); err != nil {
			return err
		}

		if vr.checkCompleted() {
			vr.log.Debug("Round completed", "phase", vr.phase)
			return nil
		}

		if err := vr.handleOneEvent(ctx); err != nil {
			return err
		}
	}
}

// handleOneEvent blocks for the next external event and applies it.
// Exactly one event is consumed per call,
// so every event is followed by a phase advance attempt
// and a completion check.
func (vr *VotingRound) handleOneEvent(ctx context.Context) error {
	// Only the timer relevant to the current phase is armed,
	// and only until it has fired.
	var timerC <-chan struct{}
	switch vr.phase {
	case PhaseStart, PhaseProposed:
		if !vr.prevoteTimerReady {
			timerC = vr.prevoteTimer
		}
	case PhasePrevoted:
		if !vr.precommitTimerReady {
			timerC = vr.precommitTimer
		}
	case PhasePrecommitted:
		// No timer left to wait on.
	}

	select {
	case <-ctx.Done():
		vr.log.Info("Context canceled while round in progress", "cause", context.Cause(ctx))
		return context.Cause(ctx)

	case in, ok := <-vr.incoming:
		if !ok {
			vr.log.Debug("Incoming message stream exhausted")
			vr.incoming = nil
			return nil
		}
		if in.Err != nil {
			return fmt.Errorf("incoming message stream failed: %w", in.Err)
		}
		return vr.handleMessage(in.Msg)

	case rs := <-vr.lastRoundStateUpdates:
		vr.lastRoundState = &rs
		return nil

	case <-timerC:
		switch vr.phase {
		case PhaseStart, PhaseProposed:
			vr.prevoteTimerReady = true
		case PhasePrevoted:
			vr.precommitTimerReady = true
		}
		return nil
	}
}

// handleMessage imports one verified message into the ledger,
// reporting any newly proven equivocation,
// or records the primary block hint.
func (vr *VotingRound) handleMessage(sm fgconsensus.SignedMessage) error {
	base := vr.ledger.Base()
	target := sm.Message.Target()
	if !vr.env.IsEqualOrDescendantOf(base.Hash, target.Hash) {
		vr.log.Debug(
			"Ignoring message targeting block outside round base subtree",
			"voter_id", sm.VoterID,
			"target_hash", glog.Hex(target.Hash),
			"target_number", target.Number,
			"base_hash", glog.Hex(base.Hash),
			"base_number", base.Number,
		)
		return nil
	}

	switch msg := sm.Message.(type) {
	case fgconsensus.Prevote:
		ev, err := vr.ledger.ImportPrevote(msg, sm.VoterID, sm.Signature)
		if err != nil {
			return fmt.Errorf("failed to import prevote from %q: %w", sm.VoterID, err)
		}
		if ev != nil {
			vr.log.Info("Prevote equivocation detected", "voter_id", sm.VoterID)
			vr.env.ReportPrevoteEquivocation(vr.ledger.Number(), *ev)
		}

	case fgconsensus.Precommit:
		ev, err := vr.ledger.ImportPrecommit(msg, sm.VoterID, sm.Signature)
		if err != nil {
			return fmt.Errorf("failed to import precommit from %q: %w", sm.VoterID, err)
		}
		if ev != nil {
			vr.log.Info("Precommit equivocation detected", "voter_id", sm.VoterID)
			vr.env.ReportPrecommitEquivocation(vr.ledger.Number(), *ev)
		}

	case fgconsensus.PrimaryPropose:
		// Only the designated primary's hint counts;
		// anyone else sending one is simply ignored.
		if sm.VoterID != vr.ledger.PrimaryVoter() {
			vr.log.Debug("Ignoring primary block hint from non-primary voter", "voter_id", sm.VoterID)
			return nil
		}
		vr.primaryBlock = &target

	default:
		return fmt.Errorf("unknown message type %T", sm.Message)
	}

	return nil
}

// advancePhase attempts the next vote in the round's sequence.
// Nothing can be cast before a previous-round state snapshot exists,
// since both prevote and precommit policies depend on it.
func (vr *VotingRound) advancePhase(ctx context.Context) error {
	last := vr.lastRoundState
	if last == nil || vr.phase == PhasePrecommitted {
		return nil
	}

	switch vr.phase {
	case PhaseStart:
		proposed, err := vr.primaryPropose(ctx, last)
		if err != nil {
			return err
		}

		prevoted, err := vr.prevote(ctx, last)
		if err != nil {
			return err
		}

		if prevoted {
			vr.phase = PhasePrevoted
		} else if proposed {
			vr.phase = PhaseProposed
		}

	case PhaseProposed:
		prevoted, err := vr.prevote(ctx, last)
		if err != nil {
			return err
		}
		if prevoted {
			vr.phase = PhasePrevoted
		}

	case PhasePrevoted:
		precommitted, err := vr.precommit(ctx, last)
		if err != nil {
			return err
		}
		if precommitted {
			vr.phase = PhasePrecommitted
		}
	}

	return nil
}

// primaryPropose sends the primary block hint if this driver is the primary
// and the previous round's estimate is still unfinalized.
// It reports whether the hint was sent.
func (vr *VotingRound) primaryPropose(ctx context.Context, last *fgconsensus.RoundState) (bool, error) {
	if !vr.role.IsPrimary() {
		return false, nil
	}

	if last.Estimate == nil {
		vr.log.Debug("Previous round has no estimate; not sending primary block hint")
		return false, nil
	}
	if last.Finalized != nil && last.Estimate.Number <= last.Finalized.Number {
		vr.log.Debug(
			"Previous round estimate already finalized; not sending primary block hint",
			"estimate_number", last.Estimate.Number,
			"finalized_number", last.Finalized.Number,
		)
		return false, nil
	}

	pp := fgconsensus.PrimaryPropose{
		TargetHash:   last.Estimate.Hash,
		TargetNumber: last.Estimate.Number,
	}

	if err := vr.env.Proposed(vr.ledger.Number(), pp); err != nil {
		return false, fmt.Errorf("failed to report primary block hint: %w", err)
	}

	vr.log.Debug(
		"Sending primary block hint",
		"target_hash", glog.Hex(pp.TargetHash),
		"target_number", pp.TargetNumber,
	)
	if !gchan.SendC(
		ctx, vr.log, vr.outgoing,
		fgconsensus.Message(pp),
		"sending primary block hint",
	) {
		return false, context.Cause(ctx)
	}

	return true, nil
}

// prevote makes the round's prevote decision once the prevote timer
// has fired or the round is already completable.
// It reports whether the decision was made;
// silent drivers make the decision without sending anything.
func (vr *VotingRound) prevote(ctx context.Context, last *fgconsensus.RoundState) (bool, error) {
	if !vr.prevoteTimerReady && !vr.ledger.Completable() {
		return false, nil
	}

	// The primary's hint is only usable if it extends
	// the chain the previous round committed to.
	hint := vr.primaryBlock
	if hint != nil && last.Estimate != nil &&
		!vr.env.IsEqualOrDescendantOf(last.Estimate.Hash, hint.Hash) {
		vr.log.Debug(
			"Primary block hint does not extend previous round estimate; ignoring it",
			"hint_hash", glog.Hex(hint.Hash),
		)
		hint = nil
	}

	target, ok := vr.ledger.PrevoteTarget(hint)
	if !ok {
		vr.log.Debug("No safe prevote target yet")
		return false, nil
	}

	if vr.role.IsActive() {
		pv := fgconsensus.Prevote{
			TargetHash:   target.Hash,
			TargetNumber: target.Number,
		}

		vr.log.Debug(
			"Casting prevote",
			"target_hash", glog.Hex(pv.TargetHash),
			"target_number", pv.TargetNumber,
		)
		if !gchan.SendC(
			ctx, vr.log, vr.outgoing,
			fgconsensus.Message(pv),
			"casting prevote",
		) {
			return false, context.Cause(ctx)
		}
	}

	return true, nil
}

// precommit makes the round's precommit decision once a prevote
// supermajority justifies a target on the previous round's estimate chain
// and the precommit timer has fired or the round is already completable.
func (vr *VotingRound) precommit(ctx context.Context, last *fgconsensus.RoundState) (bool, error) {
	target, ok := vr.ledger.PrecommitTarget()
	if !ok {
		return false, nil
	}

	// Never precommit off the chain the previous round settled on.
	if last.Estimate != nil &&
		!vr.env.IsEqualOrDescendantOf(last.Estimate.Hash, target.Hash) {
		vr.log.Debug(
			"Prevote ghost not on previous round estimate chain; withholding precommit",
			"ghost_hash", glog.Hex(target.Hash),
		)
		return false, nil
	}

	if !vr.precommitTimerReady && !vr.ledger.Completable() {
		return false, nil
	}

	if vr.role.IsActive() {
		pc := fgconsensus.Precommit{
			TargetHash:   target.Hash,
			TargetNumber: target.Number,
		}

		vr.log.Debug(
			"Casting precommit",
			"target_hash", glog.Hex(pc.TargetHash),
			"target_number", pc.TargetNumber,
		)
		if !gchan.SendC(
			ctx, vr.log, vr.outgoing,
			fgconsensus.Message(pc),
			"casting precommit",
		) {
			return false, context.Cause(ctx)
		}
	}

	return true, nil
}

// checkCompleted reports whether the round may safely stop running.
// A completable round still has to wait until its estimate
// is covered by a finalized block, in this round or the previous one;
// stopping earlier could strand the previous round's voters.
func (vr *VotingRound) checkCompleted() bool {
	if !vr.ledger.Completable() {
		return false
	}

	last := vr.lastRoundState
	if last == nil {
		// No previous round state was ever obtained,
		// so there is no earlier estimate left to protect.
		vr.recordBestCommit()
		return true
	}

	if last.Estimate == nil {
		return false
	}

	if last.Finalized != nil && last.Estimate.Number <= last.Finalized.Number {
		vr.recordBestCommit()
		return true
	}

	if fin, ok := vr.ledger.Finalized(); ok && last.Estimate.Number <= fin.Number {
		vr.recordBestCommit()
		return true
	}

	return false
}

func (vr *VotingRound) recordBestCommit() {
	fin, ok := vr.ledger.Finalized()
	if !ok {
		return
	}

	vr.bestCommit = &fgconsensus.Commit{
		Target:     fin,
		Precommits: vr.ledger.FinalizingPrecommits(),
	}
}

// BestCommit returns the commit justifying the block this round finalized.
// It only reports true after [VotingRound.Run] has returned nil,
// and only if the round itself finalized a block.
func (vr *VotingRound) BestCommit() (fgconsensus.Commit, bool) {
	if vr.bestCommit == nil {
		return fgconsensus.Commit{}, false
	}
	return *vr.bestCommit, true
}
