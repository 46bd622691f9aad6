package escalation

const (
	criticalAdvisory = `IMMEDIATE ATTENTION REQUIRED

Based on the safety concerns identified, I strongly recommend connecting with a qualified professional immediately.

Would you like me to help you find emergency contact information?`

	highAdvisory = `Expert Consultation Recommended

I've provided general guidance, but this issue may benefit from professional assessment. A qualified technician can:
- Inspect the issue in person
- Provide accurate diagnosis
- Ensure safety and compliance

Would you like to proceed with booking a specialist?`

	mediumAdvisory = `Consider Professional Help

While I can provide general advice, a professional might be better suited for:
- Complex or persistent issues
- Situations requiring specialized tools
- Cases where safety is a concern

Would you like assistance finding a qualified professional?`
)

// Message returns the advisory shown alongside an escalation of the given
// severity. Low has no advisory.
func Message(sev Severity) string {
	switch sev {
	case Critical:
		return criticalAdvisory
	case High:
		return highAdvisory
	case Medium:
		return mediumAdvisory
	default:
		return ""
	}
}
