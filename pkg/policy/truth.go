package policy

import "encoding/json"

// TrajectoryStep is one milestone of a clinical trajectory. The step
// completes once a turn touches any of its condition tags while trust is at
// or above MinTrust.
type TrajectoryStep struct {
	Id            string   `json:"id" validate:"required"`
	Name          string   `json:"name" validate:"required"`
	ConditionTags []string `json:"condition_tags"`
	MinTrust      float64  `json:"min_trust" validate:"min=0,max=1"`
}

// UnmarshalJSON keeps the documented 0.4 default when min_trust is absent,
// while still honoring an explicit zero.
func (s *TrajectoryStep) UnmarshalJSON(data []byte) error {
	type alias TrajectoryStep
	tmp := alias{MinTrust: 0.4}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*s = TrajectoryStep(tmp)
	return nil
}

type Trajectory struct {
	Id    string           `json:"id" validate:"required"`
	Name  string           `json:"name" validate:"required"`
	Steps []TrajectoryStep `json:"steps" validate:"dive"`
}

// CaseTruth is the author-side ground truth of a case: the target
// diagnosis, the differential with prior weights, facts the patient will
// not volunteer and the red flags a trainee is expected to probe for.
type CaseTruth struct {
	DxTarget     []string           `json:"dx_target" validate:"required,min=1"`
	Ddx          map[string]float64 `json:"ddx" validate:"dive,min=0,max=1"`
	HiddenFacts  []string           `json:"hidden_facts"`
	RedFlags     []string           `json:"red_flags"`
	Trajectories []Trajectory       `json:"trajectories" validate:"dive"`
}

func DecodeCaseTruth(raw []byte) (CaseTruth, error) {
	var t CaseTruth
	if len(raw) == 0 {
		return t, nil
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return CaseTruth{}, err
	}
	return t, nil
}

// Trajectory lookups used by progress reports.

func (t CaseTruth) TrajectoryById(id string) (Trajectory, bool) {
	for _, tr := range t.Trajectories {
		if tr.Id == id {
			return tr, true
		}
	}
	return Trajectory{}, false
}

func (tr Trajectory) StepById(id string) (TrajectoryStep, bool) {
	for _, st := range tr.Steps {
		if st.Id == id {
			return st, true
		}
	}
	return TrajectoryStep{}, false
}
