package script

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/F3Joule/subsocial-v2/internal/social"
	"go.uber.org/zap"
)

const (
	opRunnerNew = "script.runner.new"
	opRun       = "script.run"
)

// Outcomes reported per operation.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeDenied   = "denied"
)

var (
	errMissingLedger   = errors.New("ledger is required")
	errMissingVerifier = errors.New("actor verifier is required when tokens are required")
	ErrMissingToken    = errors.New("script: actor token required")
	ErrUnknownPostKind = errors.New("script: unknown post kind")
	noOpLogger         = zap.NewNop()
)

// ServiceError carries a stable "<operation>.<reason>" code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ActorVerifier resolves a signed actor token to the account it names.
type ActorVerifier interface {
	VerifyActor(token string) (social.AccountID, error)
}

// OperationObserver receives one call per attempted operation.
type OperationObserver interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
}

type RunnerConfig struct {
	Ledger        *social.Ledger
	Verifier      ActorVerifier
	RequireTokens bool
	FailFast      bool
	Observer      OperationObserver
	Logger        *zap.Logger
	Clock         func() time.Time
}

// Runner applies scripts to a ledger one operation at a time. Each operation
// is atomic on its own; a failed operation leaves the ledger as it was.
type Runner struct {
	ledger        *social.Ledger
	verifier      ActorVerifier
	requireTokens bool
	failFast      bool
	observer      OperationObserver
	logger        *zap.Logger
	clock         func() time.Time
}

// OperationResult describes what happened to one operation.
type OperationResult struct {
	Index     int
	Operation string
	Actor     social.AccountID
	Outcome   string
	// CreatedID is the id allocated by create_space, create_post or create_reaction.
	CreatedID uint64
	Err       error
}

// Report summarizes a run.
type Report struct {
	Results  []OperationResult
	Applied  int
	Rejected int
	Denied   int
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Ledger == nil {
		return nil, newServiceError(opRunnerNew, "missing_ledger", errMissingLedger)
	}
	if cfg.RequireTokens && cfg.Verifier == nil {
		return nil, newServiceError(opRunnerNew, "missing_verifier", errMissingVerifier)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Runner{
		ledger:        cfg.Ledger,
		verifier:      cfg.Verifier,
		requireTokens: cfg.RequireTokens,
		failFast:      cfg.FailFast,
		observer:      cfg.Observer,
		logger:        logger,
		clock:         clock,
	}, nil
}

// Run applies every operation in order. With fail-fast enabled the first
// failed operation stops the run and is returned as an error; otherwise
// failures are only reported.
func (r *Runner) Run(ctx context.Context, script Script) (Report, error) {
	report := Report{Results: make([]OperationResult, 0, len(script.Operations))}

	for index, operation := range script.Operations {
		if err := ctx.Err(); err != nil {
			return report, newServiceError(opRun, "cancelled", err)
		}

		result := r.apply(index, operation)
		report.Results = append(report.Results, result)
		switch result.Outcome {
		case OutcomeApplied:
			report.Applied++
		case OutcomeDenied:
			report.Denied++
		default:
			report.Rejected++
		}

		if result.Err != nil && r.failFast {
			return report, newServiceError(opRun, "operation_failed", fmt.Errorf("operation %d (%s): %w", index, operation.Op, result.Err))
		}
	}

	r.logger.Info("script applied",
		zap.Int("operations", len(script.Operations)),
		zap.Int("applied", report.Applied),
		zap.Int("rejected", report.Rejected),
		zap.Int("denied", report.Denied),
	)
	return report, nil
}

func (r *Runner) apply(index int, operation Operation) OperationResult {
	started := r.clock()
	result := OperationResult{Index: index, Operation: operation.Op}

	actor, err := r.resolveActor(operation)
	if err != nil {
		result.Outcome = OutcomeDenied
		result.Err = err
	} else {
		result.Actor = actor
		result.CreatedID, result.Err = r.dispatch(actor, operation)
		result.Outcome = OutcomeApplied
		if result.Err != nil {
			result.Outcome = OutcomeRejected
		}
	}

	elapsed := r.clock().Sub(started)
	if r.observer != nil {
		r.observer.ObserveOperation(operation.Op, result.Outcome, elapsed)
	}
	r.logResult(result, elapsed)
	return result
}

func (r *Runner) resolveActor(operation Operation) (social.AccountID, error) {
	if operation.Token != "" {
		if r.verifier == nil {
			return "", errMissingVerifier
		}
		return r.verifier.VerifyActor(operation.Token)
	}
	if r.requireTokens {
		return "", ErrMissingToken
	}
	return social.AccountID(operation.Actor), nil
}

func (r *Runner) dispatch(actor social.AccountID, operation Operation) (uint64, error) {
	ledger := r.ledger

	switch operation.Op {
	case OpCreateProfile:
		handle := ""
		if operation.Handle != nil {
			handle = *operation.Handle
		}
		return 0, ledger.CreateProfile(actor, handle, contentOrEmpty(operation))

	case OpUpdateProfile:
		return 0, ledger.UpdateProfile(actor, social.ProfileUpdate{Handle: operation.Handle, Content: operation.Content})

	case OpCreateSpace:
		id, err := ledger.CreateSpace(actor, operation.Handle, contentOrEmpty(operation))
		return uint64(id), err

	case OpUpdateSpace:
		space, err := requireSpace(operation)
		if err != nil {
			return 0, err
		}
		update := social.SpaceUpdate{Handle: operation.Handle, Content: operation.Content}
		if operation.Writers != nil {
			writers := make([]social.AccountID, 0, len(*operation.Writers))
			for _, writer := range *operation.Writers {
				writers = append(writers, social.AccountID(writer))
			}
			update.Writers = &writers
		}
		return 0, ledger.UpdateSpace(actor, social.SpaceID(space), update)

	case OpFollowSpace, OpUnfollowSpace:
		space, err := requireSpace(operation)
		if err != nil {
			return 0, err
		}
		if operation.Op == OpFollowSpace {
			return 0, ledger.FollowSpace(actor, social.SpaceID(space))
		}
		return 0, ledger.UnfollowSpace(actor, social.SpaceID(space))

	case OpFollowAccount:
		return 0, ledger.FollowAccount(actor, social.AccountID(operation.Target))

	case OpUnfollowAccount:
		return 0, ledger.UnfollowAccount(actor, social.AccountID(operation.Target))

	case OpCreatePost:
		extension, err := postExtension(operation)
		if err != nil {
			return 0, err
		}
		var space *social.SpaceID
		if operation.Space != nil {
			id := social.SpaceID(*operation.Space)
			space = &id
		}
		id, err := ledger.CreatePost(actor, space, extension, contentOrEmpty(operation))
		return uint64(id), err

	case OpUpdatePost:
		post, err := requirePost(operation)
		if err != nil {
			return 0, err
		}
		update := social.PostUpdate{Content: operation.Content}
		if operation.Space != nil {
			space := social.SpaceID(*operation.Space)
			update.SpaceID = &space
		}
		return 0, ledger.UpdatePost(actor, social.PostID(post), update)

	case OpCreateReaction:
		post, err := requirePost(operation)
		if err != nil {
			return 0, err
		}
		kind, err := social.ParseReactionKind(operation.Vote)
		if err != nil {
			return 0, err
		}
		id, err := ledger.CreatePostReaction(actor, social.PostID(post), kind)
		return uint64(id), err

	case OpUpdateReaction:
		post, err := requirePost(operation)
		if err != nil {
			return 0, err
		}
		reaction, err := requireReaction(operation)
		if err != nil {
			return 0, err
		}
		kind, err := social.ParseReactionKind(operation.Vote)
		if err != nil {
			return 0, err
		}
		return 0, ledger.UpdatePostReaction(actor, social.PostID(post), social.ReactionID(reaction), kind)

	case OpDeleteReaction:
		post, err := requirePost(operation)
		if err != nil {
			return 0, err
		}
		reaction, err := requireReaction(operation)
		if err != nil {
			return 0, err
		}
		return 0, ledger.DeletePostReaction(actor, social.PostID(post), social.ReactionID(reaction))

	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, operation.Op)
	}
}

func postExtension(operation Operation) (social.PostExtension, error) {
	switch operation.Kind {
	case "", KindRegular:
		return social.RegularPost{}, nil
	case KindComment:
		if operation.Root == nil {
			return nil, fmt.Errorf("%w: root", ErrMissingField)
		}
		comment := social.Comment{RootPostID: social.PostID(*operation.Root)}
		if operation.Parent != nil {
			parent := social.PostID(*operation.Parent)
			comment.ParentID = &parent
		}
		return comment, nil
	case KindShared:
		if operation.Original == nil {
			return nil, fmt.Errorf("%w: original", ErrMissingField)
		}
		return social.SharedPost{OriginalPostID: social.PostID(*operation.Original)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPostKind, operation.Kind)
	}
}

func (r *Runner) logResult(result OperationResult, elapsed time.Duration) {
	fields := []zap.Field{
		zap.Int("index", result.Index),
		zap.String("operation", result.Operation),
		zap.String("actor", string(result.Actor)),
		zap.String("outcome", result.Outcome),
		zap.Duration("elapsed", elapsed),
	}
	if result.CreatedID != 0 {
		fields = append(fields, zap.Uint64("created_id", result.CreatedID))
	}
	if result.Err == nil {
		r.logger.Info("operation applied", fields...)
		return
	}
	fields = append(fields,
		zap.String("kind", social.KindOf(result.Err).String()),
		zap.Error(result.Err),
	)
	r.logger.Warn("operation failed", fields...)
}

// EventLogger returns a sink that logs every committed ledger event.
func EventLogger(logger *zap.Logger) social.EventSink {
	if logger == nil {
		logger = noOpLogger
	}
	return social.EventSinkFunc(func(event social.Event) {
		fields := []zap.Field{
			zap.String("event", string(event.Name)),
			zap.String("actor", string(event.Actor)),
		}
		if event.Account != "" {
			fields = append(fields, zap.String("account", string(event.Account)))
		}
		if event.SpaceID != 0 {
			fields = append(fields, zap.Uint64("space_id", uint64(event.SpaceID)))
		}
		if event.PostID != 0 {
			fields = append(fields, zap.Uint64("post_id", uint64(event.PostID)))
		}
		if event.ReactionID != 0 {
			fields = append(fields, zap.Uint64("reaction_id", uint64(event.ReactionID)))
		}
		if event.Delta != 0 {
			fields = append(fields, zap.Int32("delta", event.Delta))
		}
		logger.Debug("ledger event", fields...)
	})
}

// FanOut publishes each event to every sink in order.
func FanOut(sinks ...social.EventSink) social.EventSink {
	return social.EventSinkFunc(func(event social.Event) {
		for _, sink := range sinks {
			if sink != nil {
				sink.Publish(event)
			}
		}
	})
}
