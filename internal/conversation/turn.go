package conversation

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation transcript. Order is chronological
// and semantically significant: the full sequence is replayed verbatim to
// the language model on every completion call.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DefaultSystemPrompt seeds every new session. It instructs the model to
// lean on injected search results for current events.
const DefaultSystemPrompt = `You are a helpful assistant with real-time search capabilities.
For current events like elections and live updates:
1. Extract and present specific numbers, statistics, and concrete data from the search results
2. If you find actual numbers or results, present them directly
3. Only if no concrete data is found, then suggest checking specific sources
4. Focus on extracting actionable information from the search results rather than just linking to sources
5. For election results, prioritize reporting specific vote counts, seats won, and percentages if available

Keep your responses focused on the actual data found. If you find real numbers or results, lead with those.
Maintain conversation context and update information when asked for the latest.`
