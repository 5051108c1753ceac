// Package relay provides an A2A-native task delegation orchestrator.
//
// Relay sits in front of a fleet of remote A2A agents. It discovers their
// agent cards, routes incoming requests through a reasoning model that
// decides which agent (or local tool) handles each sub-task, and streams
// progress back to the caller over the A2A protocol.
//
// # Quick Start
//
// Install relay:
//
//	go install github.com/kadirpekel/relay/cmd/relay@latest
//
// Point it at your agents:
//
//	llm:
//	  model: "gpt-4o"
//	  api_key: "${OPENAI_API_KEY}"
//
//	agents:
//	  - url: "http://localhost:10002"
//	  - url: "http://localhost:10003"
//
// Start the server:
//
//	relay serve --config relay.yaml
//
// # Using as Go Library
//
// Import the packages directly:
//
//	import (
//	    "github.com/kadirpekel/relay/pkg/orchestrator"
//	    "github.com/kadirpekel/relay/pkg/remote"
//	    "github.com/kadirpekel/relay/pkg/config"
//	)
//
// # Architecture
//
// All communication uses the A2A protocol:
//
//	User/Client → A2A Server → Orchestrator → Remote Agents / Local Tools
//
// The orchestrator holds no durable state; sessions live in memory for the
// lifetime of the process.
package relay
