package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	internal "github.com/ZanzyTHEbar/chatbridge/bridge"
	"github.com/ZanzyTHEbar/chatbridge/bridge/engine"
	ports "github.com/ZanzyTHEbar/chatbridge/bridge/engine/ports"
	"github.com/ZanzyTHEbar/chatbridge/bridge/worker"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds the raw webhook body; it is read once into memory,
// verified, then handed by value to parsing.
const maxBodyBytes = 1 << 20

// Coordinator is the top-level webhook control: verify, parse, acknowledge
// immediately, and schedule the deferred completion.
//
// Per inbound call: Unverified → Verified → Parsed → {TriggerReply |
// Acknowledged | NoAction}.
type Coordinator struct {
	verifier     *Verifier
	orchestrator *engine.Orchestrator
	dispatcher   ports.Dispatcher
	supervisor   *worker.Supervisor
	welcomeText  string
	pendingText  string
	logger       zerolog.Logger
}

func NewCoordinator(
	verifier *Verifier,
	orchestrator *engine.Orchestrator,
	dispatcher ports.Dispatcher,
	supervisor *worker.Supervisor,
	welcomeText, pendingText string,
	logger zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		verifier:     verifier,
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
		supervisor:   supervisor,
		welcomeText:  welcomeText,
		pendingText:  pendingText,
		logger:       logger.With().Str("component", "webhook").Logger(),
	}
}

// ServeHTTP handles POST /webhook.
func (c *Coordinator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	signature := r.Header.Get(internal.SignatureHeader)
	if signature == "" {
		http.Error(w, "missing signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	if !c.verifier.Verify(signature, body) {
		c.logger.Warn().Msg("webhook signature rejected")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	event, err := ParseEvent(body)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	switch event.Kind {
	case KindTrigger:
		c.logger.Info().Msg("trigger event: replying with welcome")
		writeJSON(w, WelcomeReply(c.welcomeText))

	case KindMessage:
		// The deferred callbacks are keyed on the request id; without one
		// there is nowhere to deliver the answer.
		if event.RequestID == "" {
			c.logger.Warn().Msg("message event without request id rejected")
			http.Error(w, "missing request id", http.StatusBadRequest)
			return
		}
		if event.SessionIDGenerated {
			c.logger.Debug().Str("session_id", event.SessionID).Msg("visitor id absent, generated fresh session id")
		}
		c.logger.Info().
			Str("request_id", event.RequestID).
			Str("session_id", event.SessionID).
			Bool("has_question", event.Question != "").
			Msg("message event: acknowledging and scheduling")

		c.schedule(event)
		writeJSON(w, PendingReply(c.pendingText))

	default:
		// Unknown handlers produce no action.
		w.WriteHeader(http.StatusOK)
	}
}

// schedule runs progress → orchestrate → final in the background. Whatever
// fails along the way, exactly one final callback is attempted: the real
// answer or the fixed fallback. The outer recovery covers the whole unit,
// so a panic anywhere before the final attempt still ends in a fallback
// delivery; once the final attempt has started it is never repeated.
func (c *Coordinator) schedule(event Event) {
	c.supervisor.Go("process-message", func() (err error) {
		ctx := context.Background()
		log := c.logger.With().Str("request_id", event.RequestID).Logger()

		finalAttempted := false
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			log.Error().Interface("panic", r).Msg("background unit panicked")
			if finalAttempted {
				// The final callback may already have reached the
				// provider; a duplicate reply is worse than a lost one.
				return
			}
			if sendErr := c.dispatcher.SendFinal(ctx, event.RequestID, internal.FallbackAnswer); sendErr != nil {
				log.Error().Err(sendErr).Msg("final callback failed")
				err = sendErr
			}
		}()

		if progressErr := c.dispatcher.SendProgress(ctx, event.RequestID); progressErr != nil {
			// The pending window just isn't extended; keep going.
			log.Warn().Err(progressErr).Msg("progress callback failed")
		}

		answer := c.produceAnswer(ctx, log, event)

		finalAttempted = true
		if sendErr := c.dispatcher.SendFinal(ctx, event.RequestID, answer); sendErr != nil {
			// No retry against the provider: the exchange is complete/lost.
			log.Error().Err(sendErr).Msg("final callback failed")
			return sendErr
		}
		log.Info().Msg("exchange completed")
		return nil
	})
}

// produceAnswer never lets orchestration failures escape: any error or
// panic collapses to the fallback text.
func (c *Coordinator) produceAnswer(ctx context.Context, log zerolog.Logger, event Event) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("orchestration panicked")
			answer = internal.FallbackAnswer
		}
	}()

	answer, err := c.orchestrator.Process(ctx, engine.ProcessRequest{
		SessionID:      event.SessionID,
		ConversationID: event.ConversationID,
		DepartmentID:   event.DepartmentID,
		Question:       event.Question,
	})
	if err != nil {
		log.Error().Err(err).Msg("orchestration failed, delivering fallback")
		return internal.FallbackAnswer
	}
	return answer
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
