// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package weathertool reports current weather for known cities.
package weathertool

import (
	"context"
	"fmt"
	"strings"

	"github.com/kadirpekel/relay/pkg/tool"
)

// reports holds the canned weather data, keyed by normalized city name.
var reports = map[string]string{
	"new york": "The weather in New York is sunny with a temperature of 25 degrees Celsius (77 degrees Fahrenheit).",
}

type weatherTool struct{}

var _ tool.Tool = (*weatherTool)(nil)

// New creates the weather tool.
func New() tool.Tool {
	return &weatherTool{}
}

func (t *weatherTool) Name() string {
	return "get_weather"
}

func (t *weatherTool) Description() string {
	return "Retrieves the current weather report for a specified city."
}

func (t *weatherTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{
				"type":        "string",
				"description": "The name of the city for which to retrieve the weather report.",
			},
		},
		"required": []string{"city"},
	}
}

func (t *weatherTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	city, _ := args["city"].(string)
	if city == "" {
		return nil, fmt.Errorf("city is required")
	}

	report, ok := reports[strings.ToLower(strings.TrimSpace(city))]
	if !ok {
		return map[string]any{
			"status":        "error",
			"error_message": fmt.Sprintf("Weather information for '%s' is not available.", city),
		}, nil
	}

	return map[string]any{
		"status": "success",
		"report": report,
	}, nil
}
