package core

import "strings"

// NewSystemContent builds the system message. The run loop guarantees it is
// never dropped from the conversation.
func NewSystemContent(text string) Content {
	return Content{Role: "system", Parts: []Part{TextPart{Text: text}}}
}

// NewUserContent builds a user message with a single text part.
func NewUserContent(text string) Content {
	return Content{Role: "user", Parts: []Part{TextPart{Text: text}}}
}

// NewToolContent builds a tool-role message carrying one function response.
func NewToolContent(id, name, response string) Content {
	return Content{
		Role: "tool",
		Parts: []Part{FunctionResponsePart{
			FunctionResponse: FunctionResponse{ID: id, Name: name, Response: response},
		}},
	}
}

// Text concatenates all text parts of the content.
func (c Content) Text() string {
	var sb strings.Builder
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// FunctionCalls extracts all function call parts in order.
func (c Content) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range c.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}
