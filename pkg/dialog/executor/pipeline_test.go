package executor

import (
	"context"
	"log"
	"math/rand"
	"os"
	"strings"
	"testing"

	"rag-patient-be/internal/constant"
	"rag-patient-be/internal/entity"
	"rag-patient-be/internal/repository/memory"
	"rag-patient-be/pkg/dialog/guard"
	"rag-patient-be/pkg/policy"

	"github.com/google/uuid"
)

func newExecutor(t *testing.T) *PipelineExecutor {
	t.Helper()
	return NewPipelineExecutor(nil, nil, rand.New(rand.NewSource(1)), true, log.New(os.Stderr, "[test] ", 0))
}

func seedSleepCase(t *testing.T) (*memory.Store, *entity.Case) {
	t.Helper()

	store := memory.NewStore()
	uow := memory.NewMemoryUnitOfWork(store)
	ctx := context.Background()

	c := &entity.Case{
		Id:       uuid.New(),
		Title:    "Бессонница",
		Policies: policy.DefaultPolicies(),
		Truth: policy.CaseTruth{
			DxTarget: []string{"insomnia"},
			RedFlags: []string{"suicide_ideation"},
			Trajectories: []policy.Trajectory{
				{
					Id:   "tr_sleep",
					Name: "История сна",
					Steps: []policy.TrajectoryStep{
						{Id: "s1", Name: "Тема сна", ConditionTags: []string{"sleep"}, MinTrust: 0.2},
					},
				},
			},
		},
	}
	if err := uow.CaseRepository().Create(ctx, c); err != nil {
		t.Fatalf("seed case: %v", err)
	}

	fragments := []*entity.Fragment{
		{
			CaseId:       c.Id,
			Text:         "Я почти не сплю уже месяц",
			Availability: constant.AvailabilityPublic,
			Metadata:     entity.FragmentMetadata{Topic: "sleep", Tags: []string{"hook"}},
		},
		{
			CaseId:       c.Id,
			Text:         "Просыпаюсь в четыре утра",
			Availability: constant.AvailabilityPublic,
			Metadata:     entity.FragmentMetadata{Topic: "sleep"},
		},
	}
	if err := uow.FragmentRepository().CreateBulk(ctx, fragments); err != nil {
		t.Fatalf("seed fragments: %v", err)
	}
	return store, c
}

func defaultFlags() Flags {
	return Flags{
		RagMode:   constant.RagModeMetadata,
		TopK:      3,
		NoiseRate: 0,
	}
}

func TestExecuteOrdinaryTurn(t *testing.T) {
	store, c := seedSleepCase(t)
	uow := memory.NewMemoryUnitOfWork(store)

	res, err := newExecutor(t).Execute(context.Background(), uow, Input{
		Case:      c,
		State:     entity.DefaultSessionState(),
		Utterance: "Как вы спите в последнее время?",
		Flags:     defaultFlags(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if res.Norm.Intent != constant.IntentClarify {
		t.Errorf("Intent = %q, want clarify", res.Norm.Intent)
	}
	if len(res.Retrieval.Candidates) != 2 {
		t.Errorf("candidates = %d, want 2", len(res.Retrieval.Candidates))
	}
	if res.Guard.RiskStatus != constant.RiskStatusNone {
		t.Errorf("RiskStatus = %q", res.Guard.RiskStatus)
	}
	if res.Reply != "Plan:2 intent=clarify risk=none" {
		t.Errorf("Reply = %q", res.Reply)
	}
	if len(res.UsedFragments) != 2 {
		t.Errorf("UsedFragments = %v, want both chosen fragments", res.UsedFragments)
	}
	// clarify +0.02 plus candidates bonus +0.02
	if delta := res.Guard.TrustDelta; delta < 0.039 || delta > 0.041 {
		t.Errorf("TrustDelta = %v, want 0.04", delta)
	}
	if res.Norm.Summary == "" {
		t.Error("Summary empty")
	}
	if res.ReasonUsed || res.GenUsed || res.FallbackUsed {
		t.Errorf("model markers set on a deterministic turn: %+v", res)
	}
}

func TestExecuteRiskTurn(t *testing.T) {
	store, c := seedSleepCase(t)
	uow := memory.NewMemoryUnitOfWork(store)

	res, err := newExecutor(t).Execute(context.Background(), uow, Input{
		Case:      c,
		State:     entity.DefaultSessionState(),
		Utterance: "Вы думали про суицид?",
		Flags:     defaultFlags(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if res.Norm.Intent != constant.IntentRiskCheck {
		t.Errorf("Intent = %q, want risk_check", res.Norm.Intent)
	}
	if res.Guard.RiskStatus != constant.RiskStatusAcute {
		t.Fatalf("RiskStatus = %q, want acute", res.Guard.RiskStatus)
	}
	if len(res.Guard.Plan.ContentPlan) != 1 || res.Guard.Plan.ContentPlan[0] != guard.RiskProtocolLine {
		t.Errorf("ContentPlan = %v, want the protocol line", res.Guard.Plan.ContentPlan)
	}
	if !strings.HasSuffix(res.Reply, "intent=risk_check risk=acute") {
		t.Errorf("Reply = %q", res.Reply)
	}
	if delta := res.Guard.TrustDelta; delta > -0.049 || delta < -0.051 {
		t.Errorf("TrustDelta = %v, want the acute override -0.05", delta)
	}
}

func TestExecuteEmptyKnowledgeBase(t *testing.T) {
	store := memory.NewStore()
	uow := memory.NewMemoryUnitOfWork(store)
	c := &entity.Case{Id: uuid.New(), Title: "Пустой кейс", Policies: policy.DefaultPolicies()}
	if err := uow.CaseRepository().Create(context.Background(), c); err != nil {
		t.Fatalf("seed case: %v", err)
	}

	res, err := newExecutor(t).Execute(context.Background(), uow, Input{
		Case:      c,
		State:     entity.DefaultSessionState(),
		Utterance: "Что вас беспокоит?",
		Flags:     defaultFlags(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(res.Retrieval.Candidates) != 0 {
		t.Errorf("candidates = %d, want 0", len(res.Retrieval.Candidates))
	}
	if res.Reply != "Plan:0 intent=clarify risk=none" {
		t.Errorf("Reply = %q", res.Reply)
	}
	// clarify +0.02 with the missing-candidates malus -0.01
	if delta := res.Guard.TrustDelta; delta < 0.009 || delta > 0.011 {
		t.Errorf("TrustDelta = %v, want 0.01", delta)
	}
}

func TestExecuteVectorModeDegradesWithoutEmbedder(t *testing.T) {
	store, c := seedSleepCase(t)
	uow := memory.NewMemoryUnitOfWork(store)
	flags := defaultFlags()
	flags.RagMode = constant.RagModeVector

	res, err := newExecutor(t).Execute(context.Background(), uow, Input{
		Case:      c,
		State:     entity.DefaultSessionState(),
		Utterance: "Как вы спите?",
		Flags:     flags,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if res.Retrieval.Mode != constant.RagModeMetadata {
		t.Errorf("Mode = %q, want the recorded metadata fallback", res.Retrieval.Mode)
	}
}

func TestExecuteTrajectoryCompletion(t *testing.T) {
	store, c := seedSleepCase(t)
	uow := memory.NewMemoryUnitOfWork(store)

	res, err := newExecutor(t).Execute(context.Background(), uow, Input{
		Case:      c,
		State:     entity.DefaultSessionState(),
		Utterance: "Расскажите, как вы спите?",
		Flags:     defaultFlags(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	steps := res.Guard.CompletedSteps["tr_sleep"]
	if len(steps) != 1 || steps[0] != "s1" {
		t.Errorf("CompletedSteps = %v, want s1", res.Guard.CompletedSteps)
	}

	// Same turn again with the completion already recorded: nothing new.
	res, err = newExecutor(t).Execute(context.Background(), uow, Input{
		Case:      c,
		State:     entity.DefaultSessionState(),
		Utterance: "Расскажите, как вы спите?",
		Completed: map[string][]string{"tr_sleep": {"s1"}},
		Flags:     defaultFlags(),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.Guard.CompletedSteps) != 0 {
		t.Errorf("CompletedSteps = %v, want none on repeat", res.Guard.CompletedSteps)
	}
}
