package extract

import "fmt"

type chatRequest struct {
	Messages   []chatMessage `json:"messages"`
	Tools      []tool        `json:"tools"`
	ToolChoice toolChoice    `json:"tool_choice"`
	MaxTokens  int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type tool struct {
	Type     string       `json:"type"`
	Function functionSpec `json:"function"`
}

type functionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type toolChoice struct {
	Type     string   `json:"type"`
	Function toolName `json:"function"`
}

type toolName struct {
	Name string `json:"name"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

func (r chatResponse) arguments() (string, error) {
	if len(r.Choices) == 0 || len(r.Choices[0].Message.ToolCalls) == 0 {
		return "", ErrNoToolCall
	}
	call := r.Choices[0].Message.ToolCalls[0].Function
	if call.Name != "" && call.Name != FunctionName {
		return "", fmt.Errorf("%w: got %q", ErrNoToolCall, call.Name)
	}
	return call.Arguments, nil
}

type customer struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Email     string `json:"email"`
}

var extractFunction = functionSpec{
	Name: FunctionName,
	Description: "Extract every customer entry from a Jira ticket description. " +
		"Each entry contains a name (one or two words) and an email address. " +
		"If only one name word is present, set firstname to that word and lastname to an empty string.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"customers": map[string]any{
				"type":        "array",
				"description": "List of all customers found in the description",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"firstname": map[string]any{"type": "string", "description": "First name"},
						"lastname":  map[string]any{"type": "string", "description": "Last name, empty string if not present"},
						"email":     map[string]any{"type": "string", "description": "Email address"},
					},
					"required": []string{"firstname", "lastname", "email"},
				},
			},
		},
		"required": []string{"customers"},
	},
}
