// Package bedrock provides AWS Bedrock integration for statesqa.
//
// This package implements the llm.Client interface on top of the Bedrock
// runtime InvokeModel API, using the Anthropic messages format so that tool
// definitions, tool_use blocks and tool_result blocks round-trip. The Bedrock
// control plane is only used for health checks.
//
// Usage:
//
//	client, err := bedrock.NewClient(llm.ClientConfig{
//	    Provider: "bedrock",
//	    Model:    "anthropic.claude-3-haiku-20240307-v1:0",
//	    Extra: map[string]string{
//	        "region": "us-east-1",
//	    },
//	})
//
// The client uses the AWS SDK's default credential chain for authentication.
package bedrock
