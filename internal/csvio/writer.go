package csvio

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/atmx/payments-engine/internal/model"
)

var snapshotHeader = []string{"client", "available", "held", "total", "locked"}

// WriteSnapshot writes one row per account in the order given, with every
// amount rendered to exactly Precision fractional digits.
func WriteSnapshot(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(snapshotHeader); err != nil {
		return err
	}
	row := make([]string, len(snapshotHeader))
	for _, a := range accounts {
		row[0] = strconv.FormatUint(uint64(a.Client), 10)
		row[1] = a.Available.StringFixed(Precision)
		row[2] = a.Held.StringFixed(Precision)
		row[3] = a.Total.StringFixed(Precision)
		row[4] = strconv.FormatBool(a.Locked)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
