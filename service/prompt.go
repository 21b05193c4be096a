package service

import (
	"strings"
)

// BuildPrompt wraps the document text in the fixed analysis instructions.
// The text is included verbatim.
func BuildPrompt(documentText string) string {
	var b strings.Builder

	b.WriteString("Analyze the following legal document. Provide a comprehensive analysis based on the requirements below.\n\n")
	b.WriteString("Document Text:\n---\n")
	b.WriteString(documentText)
	b.WriteString("\n---\n\n")
	b.WriteString("Your task is to:\n")
	b.WriteString("1. Summarize the Document: provide a concise, abstractive summary of the entire document's purpose and key outcomes.\n")
	b.WriteString("2. Extract Key Clauses: identify and extract specific, critical clauses with their exact text. " +
		"Focus on, but do not limit yourself to: Indemnity, Termination Conditions, Confidentiality, and Governing Law.\n")
	b.WriteString("3. Risk Analysis: flag non-standard or potentially risky language. For each risk, give the risk level " +
		"('High', 'Medium', 'Low', 'Informational'), quote the exact clause, and explain the reasoning behind the assessment.\n\n")
	b.WriteString("Return the entire analysis as a single JSON object that matches the provided schema.")

	return b.String()
}
