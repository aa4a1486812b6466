package aiproxy

import "fmt"

const summarizeTemplate = `You are an expert scientific research assistant.
Summarize the following academic paper in %[1]s.
Provide a clear, concise summary (3-5 paragraphs) covering:
1. The main objective / research question
2. The methodology used
3. Key findings and contributions
4. Potential implications or applications

Paper title: %[2]s

Abstract: %[3]s

Write the summary ENTIRELY in %[1]s.`

const analyzeTemplate = `You are an expert scientific research assistant.
Analyze the following PDF document in %[1]s.
Provide a detailed analysis (5-8 paragraphs) covering:
1. Main research question and objectives
2. Methodology and experimental design
3. Key results and findings
4. Discussion and interpretation
5. Conclusions and future work
6. Strengths and limitations

Write the analysis ENTIRELY in %[1]s.`

// summarizePrompt renders the summary instruction for a paper.
func summarizePrompt(languageName, title, abstract string) string {
	return fmt.Sprintf(summarizeTemplate, languageName, title, abstract)
}

func analyzePrompt(languageName string) string {
	return fmt.Sprintf(analyzeTemplate, languageName)
}
