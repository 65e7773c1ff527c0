package cuahsi

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/snowpack-climatology/internal/domain"
)

// WaterML element shapes. Only the fields the pipeline reads are mapped.

type valueElement struct {
	DateTime    string `xml:"dateTime,attr"`
	QualityCode string `xml:"qualityControlLevelCode,attr"`
	Text        string `xml:",chardata"`
}

type variableCodeElement struct {
	Vocabulary string `xml:"vocabulary,attr"`
	Code       string `xml:",chardata"`
}

// decodeWaterML walks a GetValuesObject response token by token. Period-of-
// record responses hold tens of thousands of <value> elements, so values are
// decoded one at a time instead of unmarshalling the whole document. Element
// names are matched on their local part; the response may arrive bare or
// inside a SOAP envelope.
func decodeWaterML(r io.Reader) (domain.Series, error) {
	dec := xml.NewDecoder(r)
	// Some HydroServers declare windows-1252; the payload is ASCII in practice.
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }

	var (
		series   domain.Series
		inValues bool
		sawRoot  bool
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Series{}, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			if err := decodeStart(dec, t, &series, &inValues); err != nil {
				return domain.Series{}, err
			}
		case xml.EndElement:
			if t.Name.Local == "values" {
				inValues = false
			}
		}
	}

	if !sawRoot {
		return domain.Series{}, errors.New("empty document")
	}
	return series, nil
}

func decodeStart(dec *xml.Decoder, t xml.StartElement, series *domain.Series, inValues *bool) error {
	switch t.Name.Local {
	case "values":
		*inValues = true
	case "value":
		if !*inValues {
			return nil
		}
		var v valueElement
		if err := dec.DecodeElement(&v, &t); err != nil {
			return fmt.Errorf("value %d: %w", len(series.Readings), err)
		}
		series.Readings = append(series.Readings, domain.RawReading{
			DateTime:    strings.TrimSpace(v.DateTime),
			Value:       strings.TrimSpace(v.Text),
			QualityCode: strings.TrimSpace(v.QualityCode),
		})
	case "siteName":
		return decodeFirst(dec, t, &series.SiteName)
	case "siteCode":
		return decodeFirst(dec, t, &series.SiteCode)
	case "variableName":
		return decodeFirst(dec, t, &series.VariableName)
	case "unitAbbreviation", "unitCode":
		return decodeFirst(dec, t, &series.Unit)
	case "variableCode":
		if series.VariableCode != "" {
			return dec.Skip()
		}
		var vc variableCodeElement
		if err := dec.DecodeElement(&vc, &t); err != nil {
			return fmt.Errorf("variableCode: %w", err)
		}
		code := strings.TrimSpace(vc.Code)
		if vocab := strings.TrimSpace(vc.Vocabulary); vocab != "" && code != "" {
			code = vocab + ":" + code
		}
		series.VariableCode = code
	}
	return nil
}

// decodeFirst stores the element's text in dst unless dst is already set.
func decodeFirst(dec *xml.Decoder, t xml.StartElement, dst *string) error {
	if *dst != "" {
		return dec.Skip()
	}
	var s string
	if err := dec.DecodeElement(&s, &t); err != nil {
		return fmt.Errorf("%s: %w", t.Name.Local, err)
	}
	*dst = strings.TrimSpace(s)
	return nil
}
