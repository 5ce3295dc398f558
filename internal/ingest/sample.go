package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-pdf/fpdf"
)

// SampleLines is the body of the sample fee notice.
var SampleLines = []string{
	"G.O.Ms.No. 123 - Dated: 01-01-2025",
	"SUBJECT: REVISED FEE STRUCTURE FOR RTO SERVICES",
	"",
	"The following are the official fees for services in Kurnool RTO.",
	"Any demand exceeding these amounts is a violation of the Prevention of Corruption Act.",
	"",
	"1. LEARNER LICENSE (LL):",
	"   - Official Fee: Rs. 500",
	"   - Allowed Service Charge: Rs. 50",
	"   - Documents: Aadhar, Address Proof",
	"",
	"2. PERMANENT DRIVING LICENSE (DL):",
	"   - Official Fee: Rs. 1200",
	"   - Allowed Service Charge: Rs. 100",
	"   - Documents: Valid LL, Medical Cert",
	"",
	"3. VEHICLE TRANSFER (OWNERSHIP):",
	"   - Official Fee: Rs. 1500",
	"   - Allowed Service Charge: Rs. 200",
	"   - Documents: Form 29, Form 30",
	"",
	"IMPORTANT NOTICE:",
	"Officers asking for 'Bribes' or 'Speed Money' will face suspension.",
	"Report strictly via PramaanX.",
}

// SampleHeader is printed at the top of every page of the sample notice.
const SampleHeader = "GOVERNMENT OF ANDHRA PRADESH - TRANSPORT DEPARTMENT"

// WriteSample renders the sample fee notice to w.
func WriteSample(w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 10, SampleHeader, "", 1, "C", false, 0, "")
		pdf.Ln(5)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, "Page "+strconv.Itoa(pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	for _, line := range SampleLines {
		pdf.CellFormat(0, 10, line, "", 1, "", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("rendering sample: %w", err)
	}
	return nil
}

// WriteSampleFile renders the sample fee notice to path, creating parent
// directories as needed.
func WriteSampleFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating sample dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating sample: %w", err)
	}
	if err := WriteSample(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
