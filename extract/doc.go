// Package extract turns free-form ticket descriptions into user records by
// forcing an Azure OpenAI chat completion to call extract_customers.
package extract
