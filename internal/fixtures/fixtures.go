// Package fixtures generates deterministic bilingual support tickets for tests.
package fixtures

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Row is one raw labelled ticket.
type Row struct {
	Text     string
	Category string
}

var phrases = map[string][]string{
	"billing": {
		"My invoice shows a double charge for %s",
		"Die Rechnung enthält falsche Gebühren für %s",
		"Why was I billed twice this month for %s",
		"Bitte erstatten Sie die Abbuchung für %s",
		"Refund request for the payment on %s",
	},
	"network": {
		"Internet connection is very slow since %s",
		"Kein Netz und kein Empfang seit %s",
		"WiFi keeps dropping the signal after %s",
		"Die Verbindung bricht ständig ab seit %s",
		"No mobile data coverage near the tower since %s",
	},
	"device": {
		"My phone screen broke after %s",
		"Das Handy startet nicht mehr seit %s",
		"The router hardware overheats after %s",
		"SIM-Karte funktioniert nicht im Gerät seit %s",
		"Battery of the handset drains quickly since %s",
	},
	"contract": {
		"I want to cancel my contract before %s",
		"Ich möchte meinen Vertrag kündigen zum %s",
		"Please extend the subscription term until %s",
		"Vertragslaufzeit und Kündigungsfrist ab %s",
		"Upgrade my plan and renew the agreement on %s",
	},
	"other": {
		"Question about your store opening hours on %s",
		"Allgemeine Frage zum Kundenservice am %s",
		"Feedback about the friendly staff on %s",
		"Wo finde ich die Filiale am %s",
		"Looking for general information about %s",
	},
}

var anchors = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
	"sunday", "january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
	"yesterday",
}

// Categories lists the fixture categories, sorted.
var Categories = []string{"billing", "contract", "device", "network", "other"}

// Tickets returns perClass tickets for every category, interleaved by category.
func Tickets(perClass int) []Row {
	rows := make([]Row, 0, perClass*len(Categories))
	for i := 0; i < perClass; i++ {
		for _, cat := range Categories {
			ps := phrases[cat]
			p := ps[i%len(ps)]
			anchor := anchors[(i/len(ps))%len(anchors)]
			text := fmt.Sprintf(p, anchor)
			if i >= len(ps)*len(anchors) {
				text = fmt.Sprintf("%s (%d)", text, i)
			}
			rows = append(rows, Row{Text: text, Category: cat})
		}
	}
	return rows
}

// CSV renders rows as a text,category table.
func CSV(rows []Row) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"text", "category"})
	for _, r := range rows {
		w.Write([]string{r.Text, r.Category})
	}
	w.Flush()
	return buf.Bytes()
}
