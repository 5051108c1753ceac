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

package timetool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeTool_KnownCity(t *testing.T) {
	// noon UTC on a winter day, so New York is on EST (UTC-5)
	fixed := time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	tt := &timeTool{now: func() time.Time { return fixed }}

	result, err := tt.Call(context.Background(), map[string]any{"city": "new york"})
	require.NoError(t, err)

	assert.Equal(t, "success", result["status"])
	assert.Equal(t, "The current time in new york is 2025-01-15 07:00:00 EST-0500", result["report"])
}

func TestTimeTool_UnknownCity(t *testing.T) {
	result, err := New().Call(context.Background(), map[string]any{"city": "Gotham"})
	require.NoError(t, err)

	assert.Equal(t, "error", result["status"])
	assert.Equal(t, "Sorry, I don't have timezone information for Gotham.", result["error_message"])
}

func TestTimeTool_MissingCity(t *testing.T) {
	_, err := New().Call(context.Background(), map[string]any{})
	assert.Error(t, err)
}

func TestTimeTool_Metadata(t *testing.T) {
	tt := New()

	assert.Equal(t, "get_current_time", tt.Name())
	assert.NotEmpty(t, tt.Description())
	require.NotNil(t, tt.Schema())
}
