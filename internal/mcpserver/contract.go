package mcpserver

import (
	"strconv"

	"github.com/starford/retitle/internal/sanitize"
	"github.com/starford/retitle/internal/titlegen"
)

// NamingRulesURI identifies the naming rules resource.
const NamingRulesURI = "retitle://naming-rules"

// NamingRules describes how retitle derives file names, for LLM
// consumers that want to propose or check names themselves.
var NamingRules = `# Retitle Naming Rules

Retitle renames a PDF after a title derived from the text of its FIRST PAGE.

## Title conventions

- Research papers: ` + "`" + `Author1&Author2-Year-HumanTitle` + "`" + ` (e.g. ` + "`" + `Smith&Dong-2023-NeuralNets` + "`" + `).
  Three or more authors use ` + "`" + `et al.` + "`" + `.
- Invoices: ` + "`" + `ACME-Invoice-123-Dec2023` + "`" + `
- Legal agreements: ` + "`" + `Agreement-Smith-Vs-Jones-2023` + "`" + `
- Bank statements: ` + "`" + `Bank-Statement-HSBC-Nov2023` + "`" + `
- Pension reports: ` + "`" + `Pension-Report-2023-National` + "`" + `
- Court rulings: ` + "`" + `Court-Ruling-Case-456-2023` + "`" + `
- Titles stay in the document's original language and under 80 characters.
- When the first page is gibberish or too short the service answers ` + "`" + titlegen.Sentinel + "`" + `
  and the document is left alone.

## Filename sanitization

1. Surrounding whitespace is trimmed.
2. ` + "`" + `< > : " / \ | ? *` + "`" + ` and control characters become ` + "`" + `_` + "`" + `.
3. Runs of ` + "`" + `_` + "`" + ` collapse to one; leading and trailing ` + "`" + `_` + "`" + ` are removed.
4. Names are cut to ` + strconv.Itoa(sanitize.MaxLength) + ` characters, and further to ` + strconv.Itoa(sanitize.MaxBytes) + ` bytes if needed.
5. An empty result becomes ` + "`" + sanitize.Placeholder + "`" + `.
6. ` + "`" + `.pdf` + "`" + ` is appended.

## Collisions

An existing file is never overwritten. If the target name is taken the
document keeps its current name and the outcome is ` + "`" + `skipped_exists` + "`" + `.
`
