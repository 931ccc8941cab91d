package scanning

// receiptScanPrompt is the shared prompt used by all LLM providers for scanning receipts
const receiptScanPrompt = `You are analyzing a receipt. Carefully read all text in the image and extract the following information:

1. **Merchant**: The store or business name, usually the largest text at the top of the receipt. Examples: "Wellcome", "7-Eleven", "Starbucks".

2. **Date**: The transaction date. Convert it to MM/DD/YYYY format.

3. **Total**: The final amount paid, not the subtotal. Usually labeled "TOTAL", "Amount Due" or "Grand Total". Extract only the numeric value (e.g., 42.75 for $42.75).

4. **Items**: EVERY individual product with its price. Skip tax, subtotal, tips and fees. Use full product names, not abbreviations. Include the quantity when it is printed.

Return ONLY valid JSON in this exact format:
{
  "merchant": "store or business name",
  "total": 99.99,
  "date": "MM/DD/YYYY",
  "items": [
    {"name": "item description", "price": 9.99, "quantity": 1}
  ],
  "confidence": 95,
  "rawText": "the receipt text, one line per printed line"
}

Important:
- Amounts and prices must be numbers rounded to 2 decimal places
- If you cannot find a field, use null for that field
- If items are unclear or unreadable, use an empty array []
- Confidence is 0-100 based on how legible the receipt is
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// ollamaSystemPrompt primes local vision models, which follow instructions less reliably
const ollamaSystemPrompt = "You are an expert at reading and extracting information from receipts. You must carefully read all text in images and extract accurate information."
