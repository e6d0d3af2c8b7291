package descriptions

// Tool descriptions with practical examples and use cases

const (
	ProcessDocumentDescription = `Read a Spanish DNI/NIE or a vehicle technical sheet (ficha técnica) from a photo.

**When to use:** A party's identity document or the vehicle's technical sheet has been photographed and its data is needed for the transfer paperwork.

**Roles:** "vendedor" and "comprador" expect an identity document; "ficha" expects a technical sheet.

**Examples:**
• Seller ID: role="vendedor", image_base64=<JPEG bytes in base64>
• Technical sheet into an existing session: role="ficha", session_id=<id from a previous call>

**Common workflows:**
1. Transfer from scratch: process_document (vendedor) → process_document (comprador) → process_document (ficha) → render_* with session_id
2. Correction: process_document again for the failing role, the other roles keep their data

**Best practices:** Reuse the returned session_id so the three documents end up in the same bundle. Failed reads leave the role untouched.`

	RenderContractDescription = `Produce the vehicle sale contract (contrato de compraventa) as a PDF.

**When to use:** Seller, buyer and vehicle data are known and the parties need a contract to sign.

**Input:** session_id from process_document, or data with the bundle JSON ({"vendedor":{...},"comprador":{...},"vehiculo":{...}}).

**Best practices:** Missing values are printed as blank lines to be filled by hand; price and payment method are always left blank.`

	RenderOfficialFormDescription = `Fill the DGT transfer application form Mod.02-ES (PDF).

**When to use:** Filing the change of ownership with the DGT on paper.

**Input:** session_id or data. The form template must be present in the template directory.

**Best practices:** The response lists fields that were not found in the template or could not be written; check them before printing.`

	RenderDossierDescription = `Generate the CTIT XML dossier used to file the transfer electronically through a gestoría.

**When to use:** Submitting the transfer through the agency's electronic channel.

**Input:** session_id or data, plus optional agent_nif, agency_nif, division_key and dossier_number. Empty identifiers take the configured defaults.

**Best practices:** Missing vehicle figures are padded with the documented fallbacks; review masses and seats for unusual vehicles.`

	ShareEncodeDescription = `Encode a bundle into a share blob that another user can load with share_decode.

**Input:** session_id or data.`

	ShareDecodeDescription = `Decode a share blob back into the bundle JSON.

**Input:** blob as produced by share_encode or copied from a share link. URL-safe and unpadded forms are accepted.`

	PDFInspectTemplateDescription = `List the pages, form fields and text of a PDF template in the template directory.

**When to use:** Checking that a new edition of Mod.02-ES still has the expected field names, or finding out which templates are installed.

**Input:** name of the template file, e.g. "Mod.02-ES.pdf". Without a name the installed templates are listed.`

	HistoryListDescription = `List the saved transfers, newest first, with a summary of names, NIFs and vehicle.

**When to use:** Reopening a transfer handled earlier. Only the 50 most recent are kept.`

	HistorySaveDescription = `Save a bundle in the history.

**Input:** session_id or data.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"process_document":     ProcessDocumentDescription,
	"render_contract":      RenderContractDescription,
	"render_official_form": RenderOfficialFormDescription,
	"render_dossier":       RenderDossierDescription,
	"share_encode":         ShareEncodeDescription,
	"share_decode":         ShareDecodeDescription,
	"pdf_inspect_template": PDFInspectTemplateDescription,
	"history_list":         HistoryListDescription,
	"history_save":         HistorySaveDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns a list of all available tool names
func GetAllToolNames() []string {
	var names []string
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	return names
}
