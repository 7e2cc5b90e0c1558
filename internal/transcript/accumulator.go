// Package transcript assembles progressively refined recognition results
// into a stable text: interim results overwrite a single provisional slot,
// final results are appended and clear it.
package transcript

import "strings"

// Accumulator builds the running transcript for one recording. It is not
// safe for concurrent use; callers feed it from a single event path.
type Accumulator struct {
	finals  []string
	interim string
}

// Apply folds one recognition result into the accumulator. Empty text is
// ignored so provider keep-alive results do not disturb the interim slot.
func (a *Accumulator) Apply(text string, isFinal bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if isFinal {
		a.finals = append(a.finals, text)
		a.interim = ""
		return
	}
	a.interim = text
}

// Final returns the finalized segments joined in arrival order.
func (a *Accumulator) Final() string {
	return strings.Join(a.finals, " ")
}

// Interim returns the current provisional segment, if any.
func (a *Accumulator) Interim() string {
	return a.interim
}

// Text returns the best current reading: finalized segments followed by the
// provisional tail.
func (a *Accumulator) Text() string {
	if a.interim == "" {
		return a.Final()
	}
	if len(a.finals) == 0 {
		return a.interim
	}
	return a.Final() + " " + a.interim
}

// Reset clears all accumulated state for a new recording.
func (a *Accumulator) Reset() {
	a.finals = nil
	a.interim = ""
}
