package llm

import (
	"encoding/json"
	"fmt"
)

// systemMessage fixes the extractor persona and the output-format contract.
const systemMessage = `You are a data extractor. Given a JSON schema and the contents of a plain text or a set of images,
you MUST return ONLY the extracted data based on the schema definition provided. Do not include
any additional text in your response besides the extracted data in JSON format. If you do not
know the answer, you should return an empty string, empty list or null value.`

// userInstructionsFormat embeds the schema definition and the text content.
// The worked example keeps weaker models from wrapping output in "properties".
const userInstructionsFormat = `The output should be formatted as a JSON instance that conforms to the JSON schema below.

As an example, for the schema {"properties": {"foo": {"title": "Foo", "description": "a list of strings", "type": "array", "items": {"type": "string"}}}, "required": ["foo"]}
the object {"foo": ["bar", "baz"]} is a well-formatted instance of the schema. The object {"properties": {"foo": ["bar", "baz"]}} is not well-formatted.

Here is the output schema:
` + "```" + `
%s

Content:
%s

` + "```"

// BuildMessages assembles the two-message prompt: the fixed system
// instruction and one user message carrying the schema+text block followed by
// one image block per URL, in staging order.
func BuildMessages(schemaDefinition json.RawMessage, text string, imageURLs []string) []Message {
	instructions := fmt.Sprintf(userInstructionsFormat, string(schemaDefinition), text)

	parts := make([]ContentPart, 0, len(imageURLs)+1)
	parts = append(parts, ContentPart{Type: "text", Text: instructions})
	for _, u := range imageURLs {
		parts = append(parts, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: u}})
	}

	return []Message{
		SystemMessage(systemMessage),
		UserMessage(parts),
	}
}

// SelectModel picks the vision model when any image reference is present.
// Pure function of the image count.
func SelectModel(textModel, visionModel string, imageCount int) string {
	if imageCount > 0 {
		return visionModel
	}
	return textModel
}
