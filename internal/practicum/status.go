package practicum

import (
	"fmt"
	"sort"
)

// Review statuses reported by the API.
const (
	StatusApproved  = "approved"
	StatusReviewing = "reviewing"
	StatusRejected  = "rejected"
)

var verdicts = map[string]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// Verdict returns the canned sentence for a status.
func Verdict(status string) (string, bool) {
	v, ok := verdicts[status]
	return v, ok
}

// knownStatuses lists the status codes of the verdict table, sorted.
func knownStatuses() []string {
	out := make([]string, 0, len(verdicts))
	for k := range verdicts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ParseStatus turns one homework record into the chat message for its status.
func ParseStatus(record any) (string, error) {
	hw, ok := record.(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: got %T", ErrRecordNotObject, record)
	}
	rawName, ok := hw["homework_name"]
	if !ok {
		return "", ErrMissingName
	}
	rawStatus, ok := hw["status"]
	if !ok {
		return "", ErrMissingStatus
	}
	status := fmt.Sprint(rawStatus)
	verdict, ok := Verdict(status)
	if !ok {
		return "", &UnknownStatusError{Status: status}
	}
	return fmt.Sprintf("Изменился статус проверки работы \"%v\". %s", rawName, verdict), nil
}
