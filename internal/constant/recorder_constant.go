package constant

const (
	// VisionDefaultPrompt steers the realtime vision model while a capture is
	// running. Overridable via CAPTURE_PROMPT.
	VisionDefaultPrompt = `You are watching a live screen recording. Report what the user is doing.

RULES:
1. One short sentence per observation, present tense
2. Name the application or site and the action ("Editing main.go in VS Code")
3. Only report when the activity changes meaningfully
4. No greetings, no commentary, no speculation about intent`

	// SummarizerSystemPromptV1 is the system message sent with the rendered
	// activity log when a session is summarized.
	SummarizerSystemPromptV1 = `You summarize screen recording sessions. The user message is an activity log, one line per event: "[Ns]: description" where N is how many seconds the activity lasted.

RESPONSE FORMAT:
- At most 3 bullet points, most important first
- Each bullet is one plain sentence a person would put in a work journal
- Weight activities by their duration, long streaks matter more
- No preamble, no closing line, bullets only`
)
