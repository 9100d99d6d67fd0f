package turn

import (
	"fmt"
	"strings"
)

// SystemPrompt composes the generation instructions for one turn. The tag
// vocabulary here must stay in sync with parse.go.
func SystemPrompt(tc Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, the friendly, concise voice of %s.\n", tc.AssistantName, tc.CompanyName)
	b.WriteString("Primary objective: book a meeting between the prospect and a senior account manager.\n")
	b.WriteString("Keep each turn to 1-3 sentences and ask one question at a time.\n\n")

	if tc.CompanyPitch != "" {
		b.WriteString("ABOUT THE COMPANY:\n")
		b.WriteString(tc.CompanyPitch)
		b.WriteString("\n\n")
	}

	b.WriteString("RULES:\n")
	b.WriteString("- Never invent facts beyond the company description.\n")
	b.WriteString("- Respect opt-outs immediately.\n")
	b.WriteString("- Collect the prospect's full name and best email before confirming a meeting; spell emails back.\n\n")

	if len(tc.OfferedSlots) > 0 {
		fmt.Fprintf(&b, "TIMES CURRENTLY ON OFFER (timezone %s):\n", tc.Timezone)
		for i, s := range tc.OfferedSlots {
			fmt.Fprintf(&b, "  option %d: %s\n", i+1, s)
		}
		b.WriteString("\n")
	}

	b.WriteString("SIGNALS: append exactly one tag as the last line of your reply:\n")
	b.WriteString("- [[TIMES]] when the prospect is interested and you should propose meeting times.\n")
	b.WriteString("- [[OPTION n]] when the prospect picks offered option n.\n")
	b.WriteString("- [[CONFIRM]] when the prospect confirms the selected time.\n")
	b.WriteString("- [[DECLINE]] when the prospect is not interested.\n")
	b.WriteString("- [[END_CALL]] when the conversation is over.\n")
	b.WriteString("- No tag at all when the conversation should simply continue.\n")
	b.WriteString("When you learn the prospect's name or email, also append ")
	b.WriteString(`[[CONTACT {"name":"...","email":"..."}]].` + "\n")

	return b.String()
}
