package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/skillswap/internal/adapters/repository"
	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/quiz"
	"github.com/okian/skillswap/pkg/logger"
)

// BeginAssessment moves an accepted request into quiz_pending.
func (s *Service) BeginAssessment(ctx context.Context, requestID, actor string) (req model.SwapRequest, err error) {
	const op = "begin_assessment"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	cur, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return model.SwapRequest{}, err
	}
	if _, err := participant(op, cur, actor); err != nil {
		return model.SwapRequest{}, err
	}
	return s.requests.Transition(ctx, requestID, model.EventBeginAssessment, actor,
		repository.WithExpectedVersion(cur.Version))
}

// GetQuiz returns the questions side must answer. A skill without a bank
// yields ErrUnknownSkill; submitting for it records an unverified pass.
func (s *Service) GetQuiz(ctx context.Context, requestID string, side model.Side) ([]model.Question, error) {
	const op = "get_quiz"
	if !side.Valid() {
		return nil, model.Invalidf(op, "unknown side %q", side)
	}
	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return s.gate.Generate(ctx, req.SkillFor(side))
}

// SubmitQuiz grades side's answers and advances the request. From accepted
// the assessment begins implicitly; from quiz_failed a retry is applied
// first. A side that already passed cannot resubmit.
func (s *Service) SubmitQuiz(ctx context.Context, requestID string, side model.Side, answers []model.Answer) (res model.QuizResult, err error) {
	const op = "submit_quiz"
	defer func(start time.Time) { observe(op, start, err) }(time.Now())

	if !side.Valid() {
		return model.QuizResult{}, model.Invalidf(op, "unknown side %q", side)
	}
	return retryOnConflict(func() (model.QuizResult, error) {
		return s.submitQuiz(ctx, requestID, side, answers)
	})
}

func (s *Service) submitQuiz(ctx context.Context, requestID string, side model.Side, answers []model.Answer) (model.QuizResult, error) {
	const op = "submit_quiz"

	req, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return model.QuizResult{}, err
	}
	if prev := req.Quiz(side); prev != nil && prev.Passed {
		return model.QuizResult{}, model.WrapKind(op, model.ErrIllegalTransition,
			fmt.Errorf("%s side of request %q already passed", side, requestID))
	}
	switch req.State {
	case model.StateAccepted, model.StateQuizPending, model.StateQuizFailed:
	default:
		return model.QuizResult{}, fmt.Errorf("%s: %w", op, &model.TransitionError{From: req.State, Event: model.EventQuizRecorded})
	}

	// Grade before touching state so invalid answers change nothing.
	sub := quiz.Submission{
		RequestID: requestID,
		Side:      side,
		Skill:     req.SkillFor(side),
		Answers:   answers,
		Attempt:   req.FailedAttempts[side] + 1,
	}
	var result model.QuizResult
	if s.gate.HasBank(sub.Skill) {
		if result, err = s.gate.Score(ctx, sub); err != nil {
			return model.QuizResult{}, err
		}
	} else {
		result = s.gate.Unverified(sub)
		s.logger.Warn(ctx, "no question bank; side passes unverified",
			logger.String("request_id", requestID),
			logger.String("side", string(side)),
			logger.String("skill", sub.Skill),
		)
	}

	actor := req.Participant(side)
	switch req.State {
	case model.StateAccepted:
		if req, err = s.requests.Transition(ctx, requestID, model.EventBeginAssessment, actor,
			repository.WithExpectedVersion(req.Version)); err != nil {
			return model.QuizResult{}, err
		}
	case model.StateQuizFailed:
		if req, err = s.requests.Transition(ctx, requestID, model.EventQuizRetry, actor,
			repository.WithExpectedVersion(req.Version)); err != nil {
			return model.QuizResult{}, err
		}
	}

	ev := s.quizEvent(req, side, result)
	_, err = s.requests.Transition(ctx, requestID, ev, actor,
		repository.WithExpectedVersion(req.Version),
		repository.WithMutation(func(r *model.SwapRequest) error {
			r.SetQuiz(side, result)
			if !result.Passed {
				if r.FailedAttempts == nil {
					r.FailedAttempts = map[model.Side]int{}
				}
				r.FailedAttempts[side]++
			}
			return nil
		}))
	if err != nil {
		return model.QuizResult{}, err
	}
	return result.Clone(), nil
}

// quizEvent picks the transition a graded result implies.
func (s *Service) quizEvent(req model.SwapRequest, side model.Side, result model.QuizResult) model.Event {
	if !result.Passed {
		if req.FailedAttempts[side]+1 >= s.maxAttempts {
			return model.EventQuizExhausted
		}
		return model.EventQuizFailed
	}
	if other := req.Quiz(side.Other()); other != nil && other.Passed {
		return model.EventQuizPassed
	}
	return model.EventQuizRecorded
}
