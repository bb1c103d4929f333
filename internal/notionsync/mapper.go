package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/finlens/statement-analyzer/internal/domain"
)

// TransactionToProperties converts an extracted transaction to Notion
// page properties for the transactions mirror database. The schema is:
// Description (title), Date, Amount, Type, Category, Confidence,
// Transaction ID, Bank.
func TransactionToProperties(tx *domain.Transaction, bankName string) notionapi.Properties {
	props := notionapi.Properties{
		"Description": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.Description,
					},
				},
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: tx.Amount,
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(tx.Type),
			},
		},
		"Confidence": notionapi.NumberProperty{
			Number: tx.Confidence,
		},
	}

	if d, err := time.Parse("2006-01-02", tx.Date); err == nil {
		nd := notionapi.Date(d)
		props["Date"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &nd,
			},
		}
	}

	if tx.Category != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Category,
			},
		}
	}

	if tx.ID != "" {
		props["Transaction ID"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.ID,
					},
				},
			},
		}
	}

	if bankName != "" {
		props["Bank"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: bankName,
			},
		}
	}

	return props
}
