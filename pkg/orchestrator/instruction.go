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

package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/relay/pkg/remote"
)

const instructionTemplate = `**Role:** You are an Orchestrator Agent, an expert in coordinating tasks among a group of specialized agents. Your primary function is to understand user requests, delegate sub-tasks to the appropriate agent, synthesize the results, and provide a final answer.

**Core Directives:**

* **Analyze the Request:** Break down the user's request into smaller, manageable sub-tasks.
* **Task Delegation:** Identify the best agent for each sub-task based on their description. Use the ` + "`" + DelegateToolName + "`" + ` tool to delegate.
    * Frame your request clearly and provide all necessary context.
    * You must pass the official name of the agent to the ` + "`agent_name`" + ` parameter.
* **Synthesize Results:** Once you receive responses from the agents, combine and analyze the information to formulate a comprehensive answer.
* **Manage Tools:** If the request requires a capability you possess (i.e., a tool other than ` + "`" + DelegateToolName + "`" + `), use that tool directly.
* **Transparent Communication:** Keep the user informed of your progress. Relay final answers in a clear and easy-to-read format (e.g., using bullet points).
* **Tool Reliance:** Strictly rely on the available tools to address user requests. Do not generate responses based on assumptions.
* **Agent Awareness:** The agents listed below are the only ones available to you for delegation.

**Today's Date (YYYY-MM-DD):** %s

<Available Agents>
%s
</Available Agents>`

// buildInstruction renders the system prompt for one model turn. Agents are
// listed as one JSON object per line so names stay unambiguous.
func buildInstruction(connections []*remote.Connection, now time.Time) string {
	var agents string
	if len(connections) == 0 {
		agents = "No connected agents found."
	} else {
		lines := make([]string, 0, len(connections))
		for _, conn := range connections {
			entry, _ := json.Marshal(struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			}{conn.Name(), conn.Description()})
			lines = append(lines, string(entry))
		}
		agents = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(instructionTemplate, now.Format("2006-01-02"), agents)
}
