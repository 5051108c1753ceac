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

// Package timetool reports the current local time for known cities.
package timetool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/relay/pkg/tool"
)

// zones maps normalized city names to IANA time zone identifiers.
var zones = map[string]string{
	"new york": "America/New_York",
}

type timeTool struct {
	// now is swappable for tests.
	now func() time.Time
}

var _ tool.Tool = (*timeTool)(nil)

// New creates the current-time tool.
func New() tool.Tool {
	return &timeTool{now: time.Now}
}

func (t *timeTool) Name() string {
	return "get_current_time"
}

func (t *timeTool) Description() string {
	return "Returns the current time in a specified city."
}

func (t *timeTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{
				"type":        "string",
				"description": "The name of the city for which to retrieve the current time.",
			},
		},
		"required": []string{"city"},
	}
}

func (t *timeTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	city, _ := args["city"].(string)
	if city == "" {
		return nil, fmt.Errorf("city is required")
	}

	zoneName, ok := zones[strings.ToLower(strings.TrimSpace(city))]
	if !ok {
		return map[string]any{
			"status":        "error",
			"error_message": fmt.Sprintf("Sorry, I don't have timezone information for %s.", city),
		}, nil
	}

	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", zoneName, err)
	}

	now := t.now().In(loc)
	return map[string]any{
		"status": "success",
		"report": fmt.Sprintf("The current time in %s is %s", city, now.Format("2006-01-02 15:04:05 MST-0700")),
	}, nil
}
