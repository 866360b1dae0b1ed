package core

import (
	"testing"
	"time"
)

func TestEpisode_ApplyStateDeltaAndClone(t *testing.T) {
	ep := NewEpisodeWithID("ep1")

	delta := map[string]any{"a": 1, "b": "x"}

	ep.ApplyStateDelta(delta)
	if v, ok := ep.GetState("a"); !ok || v.(int) != 1 {
		t.Fatalf("State not applied: %+v", ep.State)
	}

	clone := ep.Clone()
	if clone == ep {
		t.Error("Clone should be a different pointer")
	}

	clone.SetState("c", 2)
	if _, exists := ep.GetState("c"); exists {
		t.Error("Original should not have clone's new key")
	}
}

func TestEpisode_AddStepAndHistory(t *testing.T) {
	ep := NewEpisodeWithID("ep2")
	ep.AddStep(StepRecord{Step: 1, Timestamp: time.Now()})
	ep.AddStep(StepRecord{Step: 2, Timestamp: time.Now()})

	all := ep.GetSteps()
	if len(all) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(all))
	}
	all[0].Step = 99
	if ep.GetSteps()[0].Step != 1 {
		t.Error("steps slice should be copied on read")
	}

	last, ok := ep.LastStep()
	if !ok || last.Step != 2 {
		t.Errorf("expected last step 2, got %+v", last)
	}
	if ep.Len() != 2 {
		t.Errorf("expected Len 2, got %d", ep.Len())
	}
}

func TestEpisode_Finish(t *testing.T) {
	ep := NewEpisode()
	if ep.Finished() {
		t.Fatal("new episode should not be finished")
	}
	ep.Finish()
	if !ep.Finished() {
		t.Fatal("episode should be finished after Finish")
	}
	ended := ep.Ended
	ep.Finish()
	if !ep.Ended.Equal(ended) {
		t.Error("second Finish should not move the end timestamp")
	}
}

func TestMessage_BroadcastAndObservation(t *testing.T) {
	direct := Message{Sender: "a", Recipient: "b", Content: "hi"}
	if direct.IsBroadcast() {
		t.Error("message with recipient should not be broadcast")
	}
	bcast := Message{Sender: "a", Content: "all"}
	if !bcast.IsBroadcast() {
		t.Error("message without recipient should be broadcast")
	}
	obs := direct.AsObservation()
	if obs.Source != "a" || obs.Text() != "hi" {
		t.Errorf("unexpected observation: %+v", obs)
	}
}

func TestStepOutput_Empty(t *testing.T) {
	if !(StepOutput{}).Empty() {
		t.Error("zero output should be empty")
	}
	out := StepOutput{Responses: []any{"x"}}
	if out.Empty() {
		t.Error("output with a response should not be empty")
	}
}

func TestStatusAndTaskStateStrings(t *testing.T) {
	cases := map[string]string{
		StatusIdle.String():       "idle",
		StatusActing.String():     "acting",
		StatusWaiting.String():    "waiting",
		StatusTerminated.String(): "terminated",
		TaskPending.String():      "pending",
		TaskCompleted.String():    "completed",
		TaskFailed.String():       "failed",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
