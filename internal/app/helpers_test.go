package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/skillswap/internal/adapters/repository"
	service "github.com/okian/skillswap/internal/app"
	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/pkg/logger"
)

func init() {
	_ = logger.Init()
}

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

type inbox struct {
	mu    sync.Mutex
	notes []model.Notification
}

func (i *inbox) Notify(_ context.Context, n model.Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.notes = append(i.notes, n)
	return nil
}

func (i *inbox) forRequest(id string) []model.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	var out []model.Notification
	for _, n := range i.notes {
		if n.RequestID == id {
			out = append(out, n)
		}
	}
	return out
}

// fixture is a started engine over alex (JavaScript, wants Python) and
// priya (Python, wants JavaScript), plus maria for unrelated traffic.
type fixture struct {
	svc   *service.Service
	dir   *repository.MemoryDirectory
	inbox *inbox
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := repository.NewMemoryDirectory()
	for _, p := range []model.SkillProfile{
		model.NewSkillProfile("alex", "Alex Kim", []model.Skill{{Name: "JavaScript", Level: "Advanced"}}, []string{"Python"}),
		model.NewSkillProfile("priya", "Priya Shah", []model.Skill{{Name: "Python", Level: "Expert"}}, []string{"JavaScript"}),
		model.NewSkillProfile("maria", "Maria Garcia", []model.Skill{{Name: "Spanish"}, {Name: "Pottery"}}, []string{"Python"}),
	} {
		if err := dir.Put(ctx, p); err != nil {
			t.Fatalf("seed %s: %v", p.UserID, err)
		}
	}

	box := &inbox{}
	all := append([]service.Option{
		service.WithNotifier(box),
		service.WithClock(func() time.Time { return testNow }),
		service.WithWorkerCount(2),
	}, opts...)
	svc := service.New(dir, all...)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })
	return &fixture{svc: svc, dir: dir, inbox: box}
}

func allCorrect(lang string) []model.Answer {
	switch lang {
	case "JavaScript":
		return []model.Answer{{QuestionID: "js-1", Selected: 0}, {QuestionID: "js-2", Selected: 1}, {QuestionID: "js-3", Selected: 0}}
	default:
		return []model.Answer{{QuestionID: "py-1", Selected: 1}, {QuestionID: "py-2", Selected: 2}, {QuestionID: "py-3", Selected: 1}}
	}
}

func allWrong(lang string) []model.Answer {
	switch lang {
	case "JavaScript":
		return []model.Answer{{QuestionID: "js-1", Selected: 3}, {QuestionID: "js-2", Selected: 3}, {QuestionID: "js-3", Selected: 3}}
	default:
		return []model.Answer{{QuestionID: "py-1", Selected: 0}, {QuestionID: "py-2", Selected: 0}, {QuestionID: "py-3", Selected: 0}}
	}
}

// passedRequest drives a fresh alex → priya request to quiz_passed.
func (f *fixture) passedRequest(t *testing.T) model.SwapRequest {
	t.Helper()
	ctx := context.Background()
	req, err := f.svc.SendRequest(ctx, "alex", "priya", "JavaScript", "Python")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err = f.svc.RespondToRequest(ctx, req.ID, "priya", model.DecisionAccept); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err = f.svc.SubmitQuiz(ctx, req.ID, model.SideRequester, allCorrect("JavaScript")); err != nil {
		t.Fatalf("requester quiz: %v", err)
	}
	if _, err = f.svc.SubmitQuiz(ctx, req.ID, model.SideResponder, allCorrect("Python")); err != nil {
		t.Fatalf("responder quiz: %v", err)
	}
	got, _ := f.svc.GetRequest(ctx, req.ID)
	if got.State != model.StateQuizPassed {
		t.Fatalf("expected quiz_passed, got %s", got.State)
	}
	return got
}

func saturday(at string) model.Slot { return model.Slot{Date: "2024-01-20", Time: at} }

// SessionProposalAt proposes Saturday video calls at the given times.
func SessionProposalAt(times ...string) service.SessionProposal {
	slots := make([]model.Slot, len(times))
	for i, at := range times {
		slots[i] = saturday(at)
	}
	return service.SessionProposal{Candidates: slots, SessionType: model.SessionVideoCall}
}
