package entity

import (
	"time"

	"rag-patient-be/internal/constant"
	"rag-patient-be/pkg/policy"

	"github.com/google/uuid"
)

// FragmentMetadata is the JSONB payload attached to every knowledge
// fragment. Topic drives the metadata retrieval mode, tags drive trajectory
// matching and recall scoring, disclosure requirements override the
// case-level gating threshold.
type FragmentMetadata struct {
	Topic                  string                         `json:"topic,omitempty"`
	Tags                   []string                       `json:"tags,omitempty"`
	EmotionLabel           string                         `json:"emotion_label,omitempty"`
	DisclosureRequirements *policy.DisclosureRequirements `json:"disclosure_requirements,omitempty"`
}

type Fragment struct {
	Id              uuid.UUID
	CaseId          uuid.UUID
	Type            string
	Text            string
	Availability    string
	Metadata        FragmentMetadata
	ConsistencyKeys []string
	Embedding       []float32
	CreatedAt       time.Time
}

// HasTag reports whether the fragment carries the given metadata tag.
func (f *Fragment) HasTag(tag string) bool {
	for _, t := range f.Metadata.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// IsKey reports whether the fragment counts toward recall scoring.
func (f *Fragment) IsKey() bool {
	for _, t := range KeyFragmentTags {
		if f.HasTag(t) {
			return true
		}
	}
	return false
}

// TrustThreshold resolves the trust needed to see this fragment when gated.
// Per-fragment disclosure requirements win over the case-level default.
func (f *Fragment) TrustThreshold(minTrustForGated float64) float64 {
	if req := f.Metadata.DisclosureRequirements; req != nil && req.TrustGE != nil {
		return *req.TrustGE
	}
	return minTrustForGated
}

// VisibleAt reports whether the fragment may be returned at the given trust
// level. Hidden fragments are never visible.
func (f *Fragment) VisibleAt(trust, minTrustForGated float64) bool {
	switch f.Availability {
	case constant.AvailabilityPublic:
		return true
	case constant.AvailabilityGated:
		return trust >= f.TrustThreshold(minTrustForGated)
	default:
		return false
	}
}
