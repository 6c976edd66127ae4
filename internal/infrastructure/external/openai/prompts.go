package openai

const extractionSystemPrompt = `You are an expert in reading procurement documents: proforma invoices, vendor receipts and purchase orders. You read vendor details, line items and amounts with high accuracy. Always respond with valid JSON.`

const extractionPrompt = `Carefully examine this procurement document and extract ALL information.

VENDOR INFORMATION:
- vendor_name: The issuing company name
- vendor_address: Full address if shown
- vendor_email: Contact email if shown
- vendor_phone: Contact phone if shown

DOCUMENT FIELDS:
- document_number: Invoice/receipt/proforma number
- document_date: Date in YYYY-MM-DD format

LINE ITEMS - extract ALL rows as an array:
- description: What is being sold
- quantity: Numeric quantity
- unit_price: Price per unit
- amount: Line total

AMOUNT FIELDS:
- subtotal: Amount before tax
- tax_amount: Tax only
- total_amount: Grand total including tax - this is the main amount
- currency: ISO code such as USD, EUR, GHS

TERMS:
- payment_terms: e.g. "Net 30", "50% advance"
- delivery_terms: e.g. "FOB", "2 weeks after order"

SELF-ASSESSMENT:
- confidence: A number between 0.0 and 1.0 reflecting how certain you
  are that the extracted values are correct. Use lower values for
  blurry, partial or ambiguous documents.

Return a JSON object with this exact structure:
{
  "vendor_name": "string",
  "vendor_address": "string",
  "vendor_email": "string",
  "vendor_phone": "string",
  "document_number": "string",
  "document_date": "YYYY-MM-DD",
  "line_items": [{"description": "string", "quantity": number, "unit_price": number, "amount": number}],
  "subtotal": number,
  "tax_amount": number,
  "total_amount": number,
  "currency": "string",
  "payment_terms": "string",
  "delivery_terms": "string",
  "confidence": number
}

IMPORTANT:
- Extract EXACTLY what you see. Do not guess or make up values.
- For amounts, use numbers without currency symbols.
- If a field is not visible or unclear, use empty string "" or 0.`
