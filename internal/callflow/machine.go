package callflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/YehoanatnEzra/Callflow-AI/internal/availability"
	"github.com/YehoanatnEzra/Callflow-AI/internal/company"
	"github.com/YehoanatnEzra/Callflow-AI/internal/ledger"
	"github.com/YehoanatnEzra/Callflow-AI/internal/model"
	"github.com/YehoanatnEzra/Callflow-AI/internal/turn"
)

const (
	noAvailabilityUtterance = "I'm sorry, we don't have any open times right now. We'll reach out as soon as the calendar frees up."
	failureUtterance        = "I'm running into a technical problem on my end. We'll follow up with you shortly, sorry about that!"
	goodbyeUtterance        = "Thanks for your time today. Goodbye!"
)

type Config struct {
	AdapterTimeout     time.Duration // hard deadline per generation call; default 4s
	MaxAdapterFailures int           // consecutive failures before the call fails; default 2
	OfferCount         int           // slots proposed per batch; default 2
	Slots              availability.Params
}

func (c Config) withDefaults() Config {
	if c.AdapterTimeout <= 0 {
		c.AdapterTimeout = 4 * time.Second
	}
	if c.MaxAdapterFailures <= 0 {
		c.MaxAdapterFailures = 2
	}
	if c.OfferCount <= 0 {
		c.OfferCount = 2
	}
	return c
}

// Machine advances one call session per inbound webhook event. It owns the
// transition table; the ledger commit is the only authority for booking
// success, and Booked is entered only after that commit returns.
type Machine struct {
	adapter   turn.Adapter
	ledger    ledger.Ledger
	companies company.Source
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

func NewMachine(adapter turn.Adapter, l ledger.Ledger, companies company.Source, logger *slog.Logger, cfg Config) *Machine {
	return &Machine{
		adapter:   adapter,
		ledger:    l,
		companies: companies,
		logger:    logger,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
	}
}

// Step processes one event. The caller (the registry) holds sess.mu.
func (m *Machine) Step(ctx context.Context, sess *Session, ev Event) Response {
	if ev.Seq > 0 && ev.Seq <= sess.lastSeq {
		// Replayed webhook delivery: no new transition, no second booking.
		return sess.lastResponse
	}

	resp := m.step(ctx, sess, ev)

	if ev.Seq > sess.lastSeq {
		sess.lastSeq = ev.Seq
	}
	sess.lastResponse = resp
	sess.lastActivity = m.now()
	return resp
}

func (m *Machine) step(ctx context.Context, sess *Session, ev Event) Response {
	now := m.now()

	switch ev.Kind {
	case EventCallStarted:
		return m.startCall(ctx, sess, now)
	case EventCallEnded:
		if !sess.state.Terminal() {
			sess.setState(StateEnded, now)
		}
		return Response{EndCall: true}
	}

	if sess.state.Terminal() {
		return Response{Utterance: goodbyeUtterance, EndCall: true}
	}

	sess.append(model.RoleProspect, ev.Utterance, now)

	res, ok := m.nextTurn(ctx, sess)
	if !ok {
		sess.setState(StateFailed, now)
		sess.append(model.RoleAssistant, failureUtterance, now)
		return Response{Utterance: failureUtterance, EndCall: true}
	}
	sess.prospect = sess.prospect.Merge(res.Prospect)

	resp := m.dispatch(ctx, sess, res, now)
	if resp.Utterance != "" {
		sess.append(model.RoleAssistant, resp.Utterance, now)
	}
	return resp
}

func (m *Machine) startCall(ctx context.Context, sess *Session, now time.Time) Response {
	prof, err := m.companies.Profile(ctx, sess.CompanyID)
	if err != nil {
		m.logger.Warn("company profile lookup failed; using defaults",
			"call_id", sess.CallID, "company_id", sess.CompanyID, "err", err)
		prof, _ = company.NewStatic("", "", "", "").Profile(ctx, sess.CompanyID)
	}
	sess.profile = prof

	intro := fmt.Sprintf(
		"Hi there, this is %s calling from %s. May I borrow a minute to share how we help teams schedule more meetings?",
		prof.AssistantName, prof.Name)
	sess.append(model.RoleAssistant, intro, now)
	return Response{Utterance: intro}
}

// nextTurn invokes the adapter under the configured deadline. A failed or
// timed-out turn falls back to the scripted utterance with a continue signal;
// the second consecutive failure gives up (ok = false).
func (m *Machine) nextTurn(ctx context.Context, sess *Session) (turn.Result, bool) {
	tctx, cancel := context.WithTimeout(ctx, m.cfg.AdapterTimeout)
	res, err := m.adapter.NextTurn(tctx, m.turnContext(sess))
	cancel()
	if err != nil {
		sess.adapterFails++
		m.logger.Warn("turn adapter failed",
			"call_id", sess.CallID, "consecutive", sess.adapterFails, "err", err)
		if sess.adapterFails >= m.cfg.MaxAdapterFailures {
			return turn.Result{}, false
		}
		return turn.Result{
			Utterance: turn.FallbackUtterance,
			Signal:    turn.Signal{Kind: turn.SignalContinue},
		}, true
	}
	sess.adapterFails = 0
	return res, true
}

func (m *Machine) turnContext(sess *Session) turn.Context {
	tc := turn.Context{
		CallID:        sess.CallID,
		CompanyName:   sess.profile.Name,
		CompanyPitch:  sess.profile.Description,
		AssistantName: sess.profile.AssistantName,
		Timezone:      sess.profile.Timezone,
		Transcript:    sess.transcript,
	}
	for _, s := range sess.offer {
		tc.OfferedSlots = append(tc.OfferedSlots, availability.FormatLocal(s, sess.profile.Timezone))
	}
	return tc
}

// dispatch applies the transition table for the current state and signal.
func (m *Machine) dispatch(ctx context.Context, sess *Session, res turn.Result, now time.Time) Response {
	sig := res.Signal

	// Hangup-equivalent signals end any non-terminal state.
	if sig.Kind == turn.SignalEndCall {
		sess.setState(StateEnded, now)
		u := res.Utterance
		if u == "" {
			u = goodbyeUtterance
		}
		return Response{Utterance: u, EndCall: true}
	}

	switch sess.state {
	case StateGreeting:
		if sig.Kind == turn.SignalDeclines {
			sess.setState(StateDeclined, now)
			return Response{Utterance: declineUtterance(res), EndCall: true}
		}
		sess.setState(StatePitching, now)
		return Response{Utterance: res.Utterance}

	case StatePitching, StateAwaitingInterest:
		switch sig.Kind {
		case turn.SignalWantsTimes:
			return m.offerTimes(ctx, sess, res, false, now)
		case turn.SignalDeclines:
			sess.setState(StateDeclined, now)
			return Response{Utterance: declineUtterance(res), EndCall: true}
		case turn.SignalContinue, turn.SignalSelectsOption, turn.SignalConfirms:
			// Nothing on offer yet; selection and confirmation have no
			// referent, so keep pitching.
			if sess.state == StatePitching {
				sess.setState(StateAwaitingInterest, now)
			}
			return Response{Utterance: res.Utterance}
		}

	case StateOfferingSlots:
		switch sig.Kind {
		case turn.SignalSelectsOption:
			i := sig.Option
			if i < 1 || i > len(sess.offer) {
				// Out of range: re-prompt, no transition.
				return Response{Utterance: m.rePromptOffer(sess)}
			}
			sess.selected = i - 1
			sess.setState(StateAwaitingConfirmation, now)
			u := res.Utterance
			if u == "" {
				u = fmt.Sprintf("Just to confirm, %s. Shall I book it?",
					availability.FormatLocal(sess.offer[sess.selected], sess.profile.Timezone))
			}
			return Response{Utterance: u}
		case turn.SignalDeclines, turn.SignalWantsTimes:
			// Neither time worked: move to the next batch.
			return m.offerTimes(ctx, sess, res, true, now)
		case turn.SignalContinue, turn.SignalConfirms:
			return Response{Utterance: res.Utterance}
		}

	case StateAwaitingConfirmation:
		switch sig.Kind {
		case turn.SignalConfirms:
			return m.book(ctx, sess, now)
		case turn.SignalDeclines:
			sess.selected = -1
			sess.offerOffset = 0
			return m.offerTimes(ctx, sess, res, false, now)
		case turn.SignalContinue, turn.SignalSelectsOption, turn.SignalWantsTimes:
			return Response{Utterance: res.Utterance}
		}

	case StateBooked:
		return Response{Utterance: res.Utterance}
	}

	return Response{Utterance: res.Utterance}
}

// offerTimes recomputes availability and proposes the next batch. advance
// skips past the batch currently on the table.
func (m *Machine) offerTimes(ctx context.Context, sess *Session, res turn.Result, advance bool, now time.Time) Response {
	slots, err := m.candidateSlots(ctx, sess, now)
	if err != nil {
		m.logger.Error("slot lookup failed", "call_id", sess.CallID, "err", err)
		sess.setState(StateFailed, now)
		return Response{Utterance: failureUtterance, EndCall: true}
	}

	if advance {
		sess.offerOffset += len(sess.offer)
	}
	if sess.offerOffset >= len(slots) {
		sess.offerOffset = 0
		if advance {
			// Wrapped past the end: everything has been proposed already.
			return m.nothingToOffer(sess, now)
		}
	}

	batch := slots[sess.offerOffset:]
	if len(batch) > m.cfg.OfferCount {
		batch = batch[:m.cfg.OfferCount]
	}
	if len(batch) == 0 {
		// No availability is a normal outcome, not an error.
		return m.nothingToOffer(sess, now)
	}

	sess.offer = batch
	sess.selected = -1
	sess.setState(StateOfferingSlots, now)

	lead := res.Utterance
	if lead == "" {
		lead = "I have a couple of openings."
	}
	return Response{Utterance: lead + " " + m.describeOffer(sess)}
}

// nothingToOffer clears the pending offer and returns the session to
// AwaitingInterest, so later selection or confirmation signals have no stale
// offer to land on.
func (m *Machine) nothingToOffer(sess *Session, now time.Time) Response {
	sess.offer = nil
	sess.selected = -1
	if sess.state == StateOfferingSlots || sess.state == StateAwaitingConfirmation {
		sess.setState(StateAwaitingInterest, now)
	}
	return Response{Utterance: noAvailabilityUtterance}
}

func (m *Machine) candidateSlots(ctx context.Context, sess *Session, now time.Time) ([]availability.Slot, error) {
	p := m.cfg.Slots
	p.Now = now
	if sess.profile.MeetingDuration > 0 {
		p.Duration = sess.profile.MeetingDuration
	}
	horizon := p.HorizonDays
	if horizon <= 0 {
		horizon = 14
	}
	busy, err := m.ledger.BookedIntervals(ctx, sess.CompanyID, now, now.AddDate(0, 0, horizon))
	if err != nil {
		return nil, err
	}
	return availability.ComputeSlots(sess.profile.Windows, busy, p, 0), nil
}

func (m *Machine) describeOffer(sess *Session) string {
	parts := make([]string, 0, len(sess.offer))
	for i, s := range sess.offer {
		parts = append(parts, fmt.Sprintf("option %d, %s", i+1, availability.FormatLocal(s, sess.profile.Timezone)))
	}
	return fmt.Sprintf("Would either of these work: %s?", strings.Join(parts, "; or "))
}

func (m *Machine) rePromptOffer(sess *Session) string {
	return fmt.Sprintf("Sorry, I only have %d options on the table. %s", len(sess.offer), m.describeOffer(sess))
}

// book commits the selected slot. The Booked transition happens strictly
// after the ledger commit returns; a commit-time conflict re-offers a fresh
// slot list and a storage failure fails the call.
func (m *Machine) book(ctx context.Context, sess *Session, now time.Time) Response {
	if sess.selected < 0 || sess.selected >= len(sess.offer) {
		return Response{Utterance: m.rePromptOffer(sess)}
	}
	slot := sess.offer[sess.selected]

	meeting, err := m.ledger.TryBook(ctx, ledger.Booking{
		CompanyID: sess.CompanyID,
		Slot:      slot,
		Prospect:  sess.prospect,
		CallID:    sess.CallID,
		Notes:     "booked during outbound call",
	})
	switch {
	case errors.Is(err, ledger.ErrSlotConflict):
		m.logger.Info("slot taken between offer and confirm; re-offering",
			"call_id", sess.CallID, "company_id", sess.CompanyID, "slot", slot.Start)
		sess.selected = -1
		sess.offerOffset = 0
		resp := m.offerTimes(ctx, sess, turn.Result{
			Utterance: "I'm so sorry, that time was just taken.",
		}, false, now)
		return resp
	case err != nil:
		m.logger.Error("booking commit failed", "call_id", sess.CallID, "err", err)
		sess.setState(StateFailed, now)
		return Response{Utterance: failureUtterance, EndCall: true}
	}

	sess.meetingID = meeting.ID
	sess.setState(StateBooked, now)
	sess.append(model.RoleSystem, fmt.Sprintf("meeting %s booked for %s", meeting.ID,
		availability.FormatLocal(slot, sess.profile.Timezone)), now)
	m.logger.Info("meeting booked",
		"call_id", sess.CallID, "company_id", sess.CompanyID,
		"meeting_id", meeting.ID, "start", meeting.Start)

	return Response{Utterance: fmt.Sprintf(
		"Wonderful, you're booked for %s. We look forward to speaking with you!",
		availability.FormatLocal(slot, sess.profile.Timezone))}
}

func declineUtterance(res turn.Result) string {
	if res.Utterance != "" {
		return res.Utterance
	}
	return "No problem at all. Thanks for your time, and have a great day!"
}
