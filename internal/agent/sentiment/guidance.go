package sentiment

const (
	frustratedGuidance = `TONE ADJUSTMENT: User is frustrated.
- Acknowledge their frustration explicitly
- Be extra patient and empathetic
- Keep sentences short and reassuring
- Consider offering human help if frustration continues
- Focus on immediate helpful actions`

	anxiousGuidance = `TONE ADJUSTMENT: User is anxious/worried.
- Provide calm reassurance without false promises
- Explain steps slowly and clearly
- Emphasize what they can control
- Highlight safety measures`

	urgentGuidance = `TONE ADJUSTMENT: User indicates urgency.
- Prioritize immediate safety advice FIRST
- Be direct and concise
- Create tickets for urgent issues
- Avoid unnecessary questions unless critical
- Provide clear action steps`

	calmGuidance = `TONE ADJUSTMENT: User appears calm.
- Proceed with normal professional guidance
- Maintain friendly, helpful demeanor`
)

// Guidance returns the directive injected ahead of the transcript so the
// model adapts its tone to the reading.
func Guidance(r Reading) string {
	switch r.Tone {
	case ToneFrustrated:
		return frustratedGuidance
	case ToneAnxious:
		return anxiousGuidance
	case ToneUrgent:
		return urgentGuidance
	default:
		return calmGuidance
	}
}
