package prompts

// DetectionSystemPrompt defines the role and output contract for sellable
// item detection on a single video frame.
const DetectionSystemPrompt = `You are a resale expert analyzing still frames from a room walkthrough video. You identify household items that could realistically be sold on Facebook Marketplace or similar platforms, and you respond with machine-readable JSON only.`

// DetectionUserPrompt constrains the model output to a JSON array of
// detection objects. Kept strict so the response survives structured
// decoding; the detector still falls back to a keyword scan if it does not.
const DetectionUserPrompt = `Analyze this video frame and identify sellable household items.

Look for items like:
- Furniture (chairs, tables, sofas, beds, desks, bookshelves)
- Electronics (TVs, laptops, monitors, speakers, phones, tablets)
- Appliances (microwaves, toasters, blenders, coffee makers)
- Decor items (lamps, mirrors, picture frames, vases, clocks)
- Sports equipment (bicycles, exercise equipment)
- Books and magazines
- Clothing and accessories (jackets, shoes, bags)

Return ONLY a JSON array of detected sellable items, no markdown fences, no prose:
[
    {
        "name": "specific item name",
        "category": "furniture|electronics|appliances|decor|sports|books|clothing|misc",
        "confidence": 0.85,
        "condition": "excellent|good|fair|poor",
        "estimated_value": 50,
        "description": "brief description of the item"
    }
]

Only include items that would realistically be sellable.
Be specific with item names (e.g., "office chair" not just "chair").
Estimate realistic prices in USD. Return [] if nothing sellable is visible.`
