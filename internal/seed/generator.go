package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"db-refactor/internal/schema"
)

var seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))

func truncate(s string, limit *int64) string {
	if limit == nil || *limit <= 0 {
		return s
	}
	runes := []rune(s)
	if int64(len(runes)) > *limit {
		return string(runes[:*limit])
	}
	return s
}

func isText(dataType string) bool {
	return strings.Contains(dataType, "char") || strings.Contains(dataType, "text") ||
		strings.Contains(dataType, "string") || strings.Contains(dataType, "clob")
}

// textValue picks a realistic string by column name.
func textValue(colName string) string {
	switch {
	case strings.Contains(colName, "email"):
		return gofakeit.Email()
	case strings.Contains(colName, "phone"):
		return gofakeit.Phone()
	case strings.Contains(colName, "first"):
		return gofakeit.FirstName()
	case strings.Contains(colName, "last"):
		return gofakeit.LastName()
	case strings.Contains(colName, "name"):
		return gofakeit.Name()
	case strings.Contains(colName, "color") || strings.Contains(colName, "colour"):
		return gofakeit.Color()
	case strings.Contains(colName, "city"):
		return gofakeit.City()
	case strings.Contains(colName, "country"):
		return gofakeit.Country()
	case strings.Contains(colName, "zip") || strings.Contains(colName, "postal"):
		return gofakeit.Zip()
	case strings.Contains(colName, "address") || strings.Contains(colName, "street"):
		return gofakeit.Street()
	case strings.Contains(colName, "url") || strings.Contains(colName, "website"):
		return gofakeit.URL()
	case strings.Contains(colName, "title") || strings.Contains(colName, "subject"):
		return gofakeit.BookTitle()
	case strings.Contains(colName, "description") || strings.Contains(colName, "comment") ||
		strings.Contains(colName, "bio") || strings.Contains(colName, "content"):
		return gofakeit.Sentence(10)
	case strings.Contains(colName, "flag") || strings.HasPrefix(colName, "is_"):
		if gofakeit.Bool() {
			return "Y"
		}
		return "N"
	}
	return gofakeit.Word()
}

// maxDigits caps an integer by its declared precision.
func maxDigits(col *schema.ColumnDescriptor, fallback int) int {
	if col.Precision == nil || *col.Precision <= 0 || *col.Precision >= 10 {
		return fallback
	}
	limit := 1
	for i := int64(0); i < *col.Precision; i++ {
		limit *= 10
	}
	if limit-1 < fallback {
		return limit - 1
	}
	return fallback
}

// GenerateValue returns a random value that fits col. Nullable columns are
// occasionally left NULL.
func GenerateValue(col *schema.ColumnDescriptor) any {
	dataType := strings.ToLower(col.DataType)
	colName := strings.ToLower(col.Name)

	if col.Nullable && seededRand.Intn(10) == 0 {
		return nil
	}

	// 1. Strings (by column name first)
	if isText(dataType) {
		return truncate(textValue(colName), col.Limit)
	}

	// 2. Date and time, formatted so every driver accepts the literal
	if strings.Contains(dataType, "date") || strings.Contains(dataType, "time") {
		val := gofakeit.DateRange(time.Now().AddDate(-1, 0, 0), time.Now())
		switch dataType {
		case "date":
			return val.Format("2006-01-02")
		case "time":
			return val.Format("15:04:05")
		}
		return val.Format("2006-01-02 15:04:05")
	}

	// 3. Numbers
	if strings.Contains(dataType, "bool") || dataType == "bit" {
		return gofakeit.Bool()
	}
	if strings.Contains(dataType, "int") {
		if strings.HasPrefix(colName, "is_") || strings.Contains(colName, "active") {
			return seededRand.Intn(2)
		}
		switch {
		case strings.Contains(dataType, "tinyint"):
			return gofakeit.Number(0, 127)
		case strings.Contains(dataType, "smallint"):
			return gofakeit.Number(1, 30000)
		}
		if strings.Contains(colName, "year") {
			return 2000 + seededRand.Intn(26)
		}
		if strings.Contains(colName, "age") {
			return gofakeit.Number(18, 90)
		}
		return gofakeit.Number(1, maxDigits(col, 50000))
	}
	if strings.Contains(dataType, "decimal") || strings.Contains(dataType, "numeric") ||
		strings.Contains(dataType, "number") || strings.Contains(dataType, "float") ||
		strings.Contains(dataType, "double") || strings.Contains(dataType, "real") {
		if col.Scale != nil && *col.Scale == 0 {
			return gofakeit.Number(1, maxDigits(col, 50000))
		}
		return gofakeit.Price(0.99, 99.99)
	}

	// 4. Binary
	if strings.Contains(dataType, "binary") || strings.Contains(dataType, "blob") ||
		strings.Contains(dataType, "bytea") || strings.Contains(dataType, "raw") {
		return []byte(gofakeit.LetterN(8))
	}

	if dataType == "" {
		return gofakeit.Word()
	}
	return fmt.Sprint(gofakeit.Number(1, 1000))
}
