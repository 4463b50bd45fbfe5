package extract

import (
	"fmt"
	"time"
)

// buildPrompt constructs the schema-constrained instruction for the
// completion service. The output shape (fields, types, allowed
// enumerations) is spelled out exactly so the response can be validated
// mechanically.
func buildPrompt(referenceDate time.Time, defaultCurrency, userText string) string {
	basePrompt :=
		"You are the parsing layer of a personal finance assistant.\n" +
			"Analyze the user's message (text, or text plus an attached image) and\n" +
			"output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
			"Output exactly one JSON object.\n\n" +
			fmt.Sprintf("Current date: %s\n", referenceDate.Format("2006-01-02")) +
			fmt.Sprintf("Default currency: %s\n\n", defaultCurrency)

	shapePrompt :=
		"The object must have these fields:\n" +
			"- \"intent\": one of \"record\", \"query\", \"delete\", \"chat\"\n" +
			"- \"transactions\": array (may be empty) of objects with:\n" +
			"    - \"kind\": one of \"expense\", \"income\", \"investment\"\n" +
			"    - \"amount\": positive number\n" +
			"    - \"currency\": string, or null to use the default\n" +
			"    - \"category\": short category string, e.g. 餐饮, 交通, 购物, 娱乐, 住房, 医疗, 工资, 投资\n" +
			"    - \"description\": short free text\n" +
			"    - \"date\": \"YYYY-MM-DD\" resolved against the current date (\"yesterday\" etc.), or null\n" +
			"- \"assets\": array (may be empty) of objects with:\n" +
			"    - \"account_name\": string, e.g. \"Alipay\", \"Bank\"\n" +
			"    - \"balance\": number (negative for debts)\n" +
			"    - \"currency\": string or null\n" +
			"    - \"category\": asset class string or null, e.g. \"Cash\", \"Stocks\", \"Fund\"\n" +
			"- \"query\": object or null; for intent \"query\": {\"category\": string or null}\n" +
			"- \"delete\": object or null; for intent \"delete\":\n" +
			"    {\"target\": \"last\" or \"search\", \"search_term\": string or null,\n" +
			"     \"amount\": number or null, \"date\": \"YYYY-MM-DD\" or null, \"all\": boolean}\n" +
			"- \"reply\": short conversational string, used only for intent \"chat\"\n\n"

	rulesPrompt :=
		"Rules:\n" +
			"- A single message may contain several transactions; emit one object per transaction.\n" +
			"- A receipt image: emit one transaction per receipt total (or per itemized line if clearly itemized).\n" +
			"- An asset/portfolio screenshot: emit one assets entry per account shown.\n" +
			"- A message may legitimately contain both transactions and assets; fill both arrays.\n" +
			"- \"delete\" with \"all\": true ONLY when the user explicitly asks to delete ALL matching records.\n" +
			"- Never invent amounts; omit a transaction rather than guessing its amount.\n" +
			"- Return ONLY valid raw JSON.\n" +
			"- Do NOT wrap the response in code fences.\n" +
			"- Do NOT use ```json or any Markdown.\n" +
			"- Output must begin with \"{\" and end with \"}\".\n\n"

	return basePrompt + shapePrompt + rulesPrompt + "User message:\n" + userText + "\n"
}
