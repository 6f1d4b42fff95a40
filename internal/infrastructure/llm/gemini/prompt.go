package gemini

import "fmt"

// buildSolvePrompt instructs the model to wrap every mathematical
// expression in dollar signs so the rendered answer stays consistent
// with knowledge base solutions.
func buildSolvePrompt(question string) string {
	return fmt.Sprintf(`You are an expert mathematics tutor. Solve this math problem with precision and clarity.

QUESTION: %s

CRITICAL FORMATTING REQUIREMENT - THIS IS MANDATORY:
You MUST wrap every single mathematical expression in dollar signs ($). No exceptions.

RESPONSE FORMAT:
Solution Steps:
[Provide numbered steps with clear explanations]

Final Answer:
[State the final answer clearly and concisely]

Verification (if applicable):
[Show verification using an alternative method or substitution]

MANDATORY MATH FORMATTING EXAMPLES - COPY THIS STYLE EXACTLY:
- Write: "For the term $3x^2$, we have $a = 3$ and $n = 2$"
- Write: "The function $f(x) = 3x^2 + 2x - 1$"
- Write: "The derivative is $f'(x) = 6x + 2$"
- Write: "Apply the power rule: if $f(x) = ax^n$, then $f'(x) = nax^{n-1}$"

NEVER WRITE MATH WITHOUT DOLLAR SIGNS:
- WRONG: "For the term 3x^2, we have a = 3 and n = 2"
- WRONG: "The function f(x) = 3x^2 + 2x - 1"
- WRONG: "The derivative is f'(x) = 6x + 2"

EVERYTHING mathematical must have $ around it: variables, numbers in math context, equations, expressions.

Begin your solution now, remembering to wrap ALL math in $ signs:`, question)
}
