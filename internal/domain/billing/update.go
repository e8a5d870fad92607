package billing

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// SubscriptionUpdate is the typed form of the open-ended update set
// accepted by update-subscription.
type SubscriptionUpdate struct {
	CancelAtPeriodEnd    *bool
	PriceID              *string
	PlanID               *string
	ProrationBehavior    *string
	Metadata             map[string]string
	DefaultPaymentMethod *string
	TrialEnd             *int64
	TrialEndNow          bool
	PauseBehavior        *string
	ResumeCollection     bool
}

var prorationBehaviors = map[string]bool{"create_prorations": true, "none": true, "always_invoice": true}
var pauseBehaviors = map[string]bool{"keep_as_draft": true, "mark_uncollectible": true, "void": true}

// ParseUpdates validates raw update fields. Unknown keys are rejected so
// nothing is silently dropped before reaching the provider.
func ParseUpdates(raw map[string]json.RawMessage) (SubscriptionUpdate, error) {
	var u SubscriptionUpdate
	if len(raw) == 0 {
		return u, Invalid("updates must contain at least one field")
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := raw[k]
		switch k {
		case "cancel_at_period_end":
			var b bool
			if err := strictUnmarshal(v, &b); err != nil {
				return u, Invalid("updates.%s must be a boolean", k)
			}
			u.CancelAtPeriodEnd = &b
		case "price":
			s, err := nonEmptyString(v)
			if err != nil {
				return u, Invalid("updates.%s must be a non-empty string", k)
			}
			u.PriceID = &s
		case "plan_id":
			s, err := nonEmptyString(v)
			if err != nil {
				return u, Invalid("updates.%s must be a non-empty string", k)
			}
			u.PlanID = &s
		case "proration_behavior":
			s, err := nonEmptyString(v)
			if err != nil || !prorationBehaviors[s] {
				return u, Invalid("updates.%s must be one of create_prorations, none, always_invoice", k)
			}
			u.ProrationBehavior = &s
		case "metadata":
			var m map[string]string
			if err := strictUnmarshal(v, &m); err != nil || m == nil {
				return u, Invalid("updates.%s must be an object of strings", k)
			}
			u.Metadata = m
		case "default_payment_method":
			s, err := nonEmptyString(v)
			if err != nil {
				return u, Invalid("updates.%s must be a non-empty string", k)
			}
			u.DefaultPaymentMethod = &s
		case "trial_end":
			var s string
			if err := strictUnmarshal(v, &s); err == nil {
				if s != "now" {
					return u, Invalid(`updates.%s must be a unix timestamp or "now"`, k)
				}
				u.TrialEndNow = true
				continue
			}
			var n int64
			if err := strictUnmarshal(v, &n); err != nil || n <= 0 {
				return u, Invalid(`updates.%s must be a unix timestamp or "now"`, k)
			}
			u.TrialEnd = &n
		case "pause_collection":
			if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
				u.ResumeCollection = true
				continue
			}
			var pc struct {
				Behavior string `json:"behavior"`
			}
			if err := strictUnmarshal(v, &pc); err != nil || !pauseBehaviors[pc.Behavior] {
				return u, Invalid("updates.%s.behavior must be one of keep_as_draft, mark_uncollectible, void", k)
			}
			u.PauseBehavior = &pc.Behavior
		default:
			return u, Invalid("updates.%s is not an updatable field", k)
		}
	}

	if u.PriceID != nil && u.PlanID != nil {
		return u, Invalid("updates may set price or plan_id, not both")
	}
	return u, nil
}

func strictUnmarshal(v json.RawMessage, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func nonEmptyString(v json.RawMessage) (string, error) {
	var s string
	if err := strictUnmarshal(v, &s); err != nil {
		return "", err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", Invalid("empty")
	}
	return s, nil
}
