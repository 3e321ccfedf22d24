// Package narrative writes short plain-language outlooks for generation
// forecasts using the OpenAI chat API.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lox/solarforecast/internal/models"
)

const DefaultModel = openai.ChatModelGPT4oMini

const systemPrompt = `You write brief outlooks for the owner of a rooftop solar installation.
Given a daily generation forecast, reply with one paragraph of at most three sentences.
Mention the best and worst day by weekday and date and give one practical suggestion about
when to run high-consumption appliances. Do not invent numbers that are not in the forecast.`

// Writer produces outlooks. The engine ignores its failures.
type Writer struct {
	client openai.Client
	model  string
}

// NewWriter creates an outlook writer. model defaults to DefaultModel.
func NewWriter(apiKey, model string) (*Writer, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key not configured")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Writer{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

// Outlook summarises the forecast days for src in one paragraph.
func (w *Writer) Outlook(ctx context.Context, src *models.EnergySource, days []models.ForecastDay) (string, error) {
	if len(days) == 0 {
		return "", errors.New("no forecast days")
	}

	resp, err := w.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: w.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(src, days)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("outlook completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("outlook completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("outlook completion returned empty text")
	}
	log.Printf("narrative: source %d: wrote %d character outlook", src.ID, len(text))
	return text, nil
}

// BuildPrompt renders the forecast as the user message.
func BuildPrompt(src *models.EnergySource, days []models.ForecastDay) string {
	var b strings.Builder
	capacity, _ := src.CapacityKWp()
	fmt.Fprintf(&b, "Installation: %s in %s, %.1f kWp.\n", src.Name, src.Location, capacity)
	b.WriteString("Forecast (date, conditions, clouds %, rain probability %, UV index, estimated kWh):\n")
	for _, d := range days {
		desc := d.Description
		if desc == "" {
			desc = d.WeatherMain
		}
		fmt.Fprintf(&b, "- %s: %s, clouds %.0f, rain %.0f, UV %.1f, %.2f kWh\n",
			d.Date, desc, d.Clouds, d.Pop, d.UVI, d.EnergyEstimateKWh)
	}
	return b.String()
}
