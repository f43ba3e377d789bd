package reports

import (
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/mopay/agent-service/internal/models"
)

// ExportXML renders the ledger as an XML statement document.
func ExportXML(profile models.Profile, txns []models.Transaction, generatedAt time.Time) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	statement := doc.CreateElement("statement")
	statement.CreateAttr("generated", generatedAt.UTC().Format(time.RFC3339))

	agent := statement.CreateElement("agent")
	agent.CreateElement("id").SetText(profile.ID)
	agent.CreateElement("name").SetText(profile.Name)
	agent.CreateElement("phone").SetText(profile.Phone)

	list := statement.CreateElement("transactions")
	list.CreateAttr("count", fmt.Sprintf("%d", len(txns)))
	for _, txn := range txns {
		el := list.CreateElement("transaction")
		el.CreateAttr("id", txn.ID)
		el.CreateAttr("network", txn.NetworkID)
		el.CreateAttr("type", txn.Type)
		el.CreateAttr("status", txn.Status)
		el.CreateElement("timestamp").SetText(txn.Timestamp)
		el.CreateElement("amount").SetText(fmt.Sprintf("%.2f", txn.Amount))
		el.CreateElement("commission").SetText(fmt.Sprintf("%.2f", txn.Commission))
		if txn.Phone != "" {
			el.CreateElement("phone").SetText(txn.Phone)
		}
		if txn.Reference != nil {
			el.CreateElement("reference").SetText(*txn.Reference)
		}
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize statement: %w", err)
	}
	return out, nil
}
