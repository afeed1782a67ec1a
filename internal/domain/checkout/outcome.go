package checkout

// Outcome is the caller-visible result of a confirmed checkout. When a
// concurrent buyer won the race on some listing of a multi-item cart, the
// already-marked listings stay sold and the lost ones are enumerated in
// AlreadySold: the payment has happened and cannot be uncharged from
// within this engine, so partial success is reported, never rolled back.
type Outcome struct {
	IntentID    string   `json:"intent_id"`
	Purchased   []string `json:"purchased"`
	AlreadySold []string `json:"already_sold"`
	Total       string   `json:"total"`
	Currency    string   `json:"currency"`
	Partial     bool     `json:"partial"`
}

func NewOutcome(a *Attempt, purchased, alreadySold []string) *Outcome {
	if purchased == nil {
		purchased = []string{}
	}
	if alreadySold == nil {
		alreadySold = []string{}
	}
	return &Outcome{
		IntentID:    a.IntentID,
		Purchased:   purchased,
		AlreadySold: alreadySold,
		Total:       a.Total.StringFixed(2),
		Currency:    a.Currency,
		Partial:     len(alreadySold) > 0 && len(purchased) > 0,
	}
}
