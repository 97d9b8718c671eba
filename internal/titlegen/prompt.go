package titlegen

// Sentinel is the exact reply the service gives when the text cannot
// support a meaningful title.
const Sentinel = "Insufficient-Content"

// Prompt is the fixed instruction sent ahead of the extracted text. The
// remote service is held to it, so it must not vary between calls.
const Prompt = "You are tasked to suggest a filename for a PDF document. " +
	"The provided text is EXTRACTED FROM THE FIRST PAGE ONLY. It may be incomplete, OCR-generated (possibly with errors), or insufficient to fully represent the document. " +
	"Your goal: propose a concise, descriptive title as the filename in the document's ORIGINAL LANGUAGE. " +
	"Make it filename-safe (no special characters, spaces allowed if simple). Keep it under 80 characters. " +
	"Respond ONLY with the filename text. NO explanations, NO prefixes or suffixes like 'Title:', NO markdown, NO additional text. Just the clean filename. " +
	"Guidelines: " +
	"- If the text is gibberish, unclear, too brief (<20 characters), or insufficient to suggest a meaningful filename, respond ONLY with '" + Sentinel + "'. " +
	"- For research or academic papers: use the 'Author1&Author2-Year-HumanTitle' format (e.g., 'Smith&Dong-2023-NeuralNets'). Use 'et al.' for 3+ authors. " +
	"- For other documents (invoices, legal, bank reports, pensions, court decisions): use structured, key-based titles. Examples: " +
	"  - Invoices: 'ACME-Invoice-123-Dec2023' (good); 'This is an invoice for payment received from customer x on date y' (bad, too verbose). " +
	"  - Legal Documents: 'Agreement-Smith-Vs-Jones-2023' (good); 'Long legal agreement between parties A and B dated some time ago without specifics' (bad). " +
	"  - Bank Reports: 'Bank-Statement-HSBC-Nov2023' (good); 'Monthly bank report showing transactions for the past 30 days including all fees and interest' (bad). " +
	"  - Pensions Yearly Reports: 'Pension-Report-2023-National' (good); 'Detailed yearly pension summary for retirement fund with charts and projections for future benefits' (bad). " +
	"  - Court Decisions: 'Court-Ruling-Case-456-2023' (good); 'The court has decided on this legal matter after consideration of all evidence presented by both sides in a complicated case' (bad). " +
	"Analyze the text below and output ONLY the filename."

// BuildPrompt appends the extracted text to Prompt.
func BuildPrompt(text string) string {
	return Prompt + "\n" + text
}
