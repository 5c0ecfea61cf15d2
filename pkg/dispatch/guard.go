package dispatch

// Admission is the typed eligibility decision for one change event. Rejected
// events are skipped with no side effects; the reason is for the log only.
type Admission struct {
	Eligible bool
	Reason   string
}

func rejected(reason string) Admission {
	return Admission{Eligible: false, Reason: reason}
}

// Admit decides whether a change event represents an unprocessed new user
// message the relay should act on.
func Admit(ev ChangeEvent) Admission {
	if ev.Kind() != KindInsert {
		return rejected("not an insert event")
	}
	rec := ev.NewRecord
	if rec == nil {
		return rejected("no record snapshot")
	}
	if rec.RecordType != MessageRecordType {
		return rejected("wrong record type")
	}
	if rec.Role != "user" {
		return rejected("role is not user")
	}
	if rec.IsAIProcessed {
		return rejected("already processed")
	}
	if rec.ID == "" || rec.ConversationID == "" {
		return rejected("missing identifiers")
	}
	return Admission{Eligible: true}
}
