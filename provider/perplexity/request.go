package perplexity

import (
	"fmt"
	"strings"

	"github.com/casualjim/pplx/pkg/jsonx"
	"github.com/casualjim/pplx/pkg/messages"
	"github.com/casualjim/pplx/provider"
	"github.com/openai/openai-go"
)

// buildChatParams maps the generic request onto the wire parameters.
// Optional values the caller left nil are not set at all, so the SDK omits
// them from the request body.
func buildChatParams(req provider.TextRequest) (openai.ChatCompletionNewParams, error) {
	msgs, err := messagesToOpenAI(req.Messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	params := openai.ChatCompletionNewParams{
		Messages: openai.F(msgs),
		Model:    openai.F(req.ModelID),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxOutputTokens != nil {
		params.MaxTokens = openai.Int(*req.MaxOutputTokens)
	}
	return params, nil
}

// buildObjectParams adds the json_schema response format to the text params.
func buildObjectParams(req provider.ObjectRequest) (openai.ChatCompletionNewParams, error) {
	params, err := buildChatParams(req.TextRequest)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	schema, err := jsonx.ToDynamicJSON(req.Schema)
	if err != nil {
		return openai.ChatCompletionNewParams{}, &provider.ConfigurationError{Provider: ProviderName, Field: "Schema", Err: err}
	}
	delete(schema, "$schema")
	delete(schema, "$id")

	format := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:   openai.F(req.Name()),
		Schema: openai.F[any](schema),
	}
	if desc := strings.TrimSpace(req.ObjectDescription); desc != "" {
		format.Description = openai.F(desc)
	}
	params.ResponseFormat = openai.F[openai.ChatCompletionNewParamsResponseFormatUnion](
		openai.ResponseFormatJSONSchemaParam{
			Type:       openai.F(openai.ResponseFormatJSONSchemaTypeJSONSchema),
			JSONSchema: openai.F(format),
		},
	)
	return params, nil
}

func messagesToOpenAI(msgs []messages.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for i, msg := range msgs {
		switch msg.Role {
		case messages.RoleSystem:
			sm := openai.ChatCompletionSystemMessageParam{
				Role:    openai.F(openai.ChatCompletionSystemMessageParamRoleSystem),
				Content: openai.Raw[[]openai.ChatCompletionContentPartTextParam](msg.Content.Text()),
			}
			if msg.Name != "" {
				sm.Name = openai.String(msg.Name)
			}
			result = append(result, sm)
		case messages.RoleUser:
			um := userMessage(msg.Content)
			if msg.Name != "" {
				um.Name = openai.String(msg.Name)
			}
			result = append(result, um)
		case messages.RoleAssistant:
			am := assistantText(msg.Content.Text())
			if msg.Name != "" {
				am.Name = openai.String(msg.Name)
			}
			result = append(result, am)
		case messages.RoleTool:
			result = append(result, openai.ChatCompletionToolMessageParam{
				Role:       openai.F(openai.ChatCompletionToolMessageParamRoleTool),
				ToolCallID: openai.F(msg.ToolCallID),
				Content:    openai.Raw[[]openai.ChatCompletionContentPartTextParam](msg.Content.Text()),
			})
		default:
			return nil, &provider.ConfigurationError{
				Provider: ProviderName,
				Field:    fmt.Sprintf("Messages[%d]", i),
				Err:      fmt.Errorf("unsupported role %q", msg.Role),
			}
		}
	}
	return result, nil
}

// userMessage sends plain string content as a JSON string; only content
// with parts goes out as a parts array.
func userMessage(content messages.ContentOrParts) openai.ChatCompletionUserMessageParam {
	if len(content.Parts) == 0 {
		return userText(content.Content)
	}
	return openai.UserMessageParts(contentParts(content)...)
}

func userText(text string) openai.ChatCompletionUserMessageParam {
	return openai.ChatCompletionUserMessageParam{
		Role:    openai.F(openai.ChatCompletionUserMessageParamRoleUser),
		Content: openai.Raw[[]openai.ChatCompletionContentPartUnionParam](text),
	}
}

func assistantText(text string) openai.ChatCompletionAssistantMessageParam {
	return openai.ChatCompletionAssistantMessageParam{
		Role:    openai.F(openai.ChatCompletionAssistantMessageParamRoleAssistant),
		Content: openai.Raw[[]openai.ChatCompletionAssistantMessageParamContentUnion](text),
	}
}

func contentParts(content messages.ContentOrParts) []openai.ChatCompletionContentPartUnionParam {
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(content.Parts)+1)
	if content.Content != "" {
		parts = append(parts, openai.TextPart(content.Content))
	}
	for _, part := range content.Parts {
		switch part := part.(type) {
		case messages.TextContentPart:
			parts = append(parts, openai.TextPart(part.Text))
		case *messages.TextContentPart:
			parts = append(parts, openai.TextPart(part.Text))
		case messages.ImageContentPart:
			parts = append(parts, imagePart(part))
		case *messages.ImageContentPart:
			parts = append(parts, imagePart(*part))
		}
	}
	return parts
}

func imagePart(part messages.ImageContentPart) openai.ChatCompletionContentPartImageParam {
	imageURL := openai.ChatCompletionContentPartImageImageURLParam{
		URL: openai.String(part.URL),
	}
	if part.Detail != "" {
		imageURL.Detail = openai.F(openai.ChatCompletionContentPartImageImageURLDetail(part.Detail))
	}
	return openai.ChatCompletionContentPartImageParam{
		ImageURL: openai.F(imageURL),
		Type:     openai.F(openai.ChatCompletionContentPartImageTypeImageURL),
	}
}
