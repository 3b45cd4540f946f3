package summarizer

import "fmt"

const chatPromptTemplate = `Summarize the text provided by the user.

Rules:
- Between %d and %d words.
- Keep the core facts: names, dates, numbers and conclusions.
- Neutral tone, plain prose, no lists or headings.
- Do not add information that is not in the text.
- Output only the summary, in the same language as the input.`

// chatPrompt turns the length bounds meant for a seq2seq model into
// instructions for a chat model.
func chatPrompt(input Input) string {
	return fmt.Sprintf(chatPromptTemplate, input.MinLength, input.MaxLength)
}
