package verifactu

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
	domverifactu "github.com/jhoicas/invorya-ledger/internal/domain/verifactu"
	pkgverifactu "github.com/jhoicas/invorya-ledger/pkg/verifactu"
)

// Namespaces de los esquemas de suministro de la AEAT.
const (
	NsSuministroLR          = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/SuministroLR.xsd"
	NsSuministroInformacion = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/SuministroInformacion.xsd"
	NsDs                    = "http://www.w3.org/2000/09/xmldsig#"
)

type idFactura struct {
	IDEmisorFactura        string `xml:"sum1:IDEmisorFactura"`
	NumSerieFactura        string `xml:"sum1:NumSerieFactura"`
	FechaExpedicionFactura string `xml:"sum1:FechaExpedicionFactura"`
}

type facturasRectificadas struct {
	IDFacturaRectificada []idFactura `xml:"sum1:IDFacturaRectificada"`
}

type idDestinatario struct {
	NombreRazon string `xml:"sum1:NombreRazon"`
	NIF         string `xml:"sum1:NIF"`
}

type destinatarios struct {
	IDDestinatario []idDestinatario `xml:"sum1:IDDestinatario"`
}

type detalleDesglose struct {
	Impuesto                      string `xml:"sum1:Impuesto"`
	ClaveRegimen                  string `xml:"sum1:ClaveRegimen"`
	CalificacionOperacion         string `xml:"sum1:CalificacionOperacion"`
	TipoImpositivo                string `xml:"sum1:TipoImpositivo"`
	BaseImponibleOimporteNoSujeto string `xml:"sum1:BaseImponibleOimporteNoSujeto"`
	CuotaRepercutida              string `xml:"sum1:CuotaRepercutida"`
}

type desglose struct {
	DetalleDesglose []detalleDesglose `xml:"sum1:DetalleDesglose"`
}

type registroAnterior struct {
	IDEmisorFactura        string `xml:"sum1:IDEmisorFactura"`
	NumSerieFactura        string `xml:"sum1:NumSerieFactura"`
	FechaExpedicionFactura string `xml:"sum1:FechaExpedicionFactura"`
	Huella                 string `xml:"sum1:Huella"`
}

type encadenamiento struct {
	PrimerRegistro   string            `xml:"sum1:PrimerRegistro,omitempty"`
	RegistroAnterior *registroAnterior `xml:"sum1:RegistroAnterior,omitempty"`
}

type sistemaInformatico struct {
	NombreRazon                 string `xml:"sum1:NombreRazon"`
	NIF                         string `xml:"sum1:NIF"`
	NombreSistemaInformatico    string `xml:"sum1:NombreSistemaInformatico"`
	IdSistemaInformatico        string `xml:"sum1:IdSistemaInformatico"`
	Version                     string `xml:"sum1:Version"`
	NumeroInstalacion           string `xml:"sum1:NumeroInstalacion"`
	TipoUsoPosibleSoloVerifactu string `xml:"sum1:TipoUsoPosibleSoloVerifactu"`
	TipoUsoPosibleMultiOT       string `xml:"sum1:TipoUsoPosibleMultiOT"`
	IndicadorMultiplesOT        string `xml:"sum1:IndicadorMultiplesOT"`
}

// registroAlta elemento raíz firmado.
type registroAlta struct {
	XMLName                  xml.Name              `xml:"sum1:RegistroAlta"`
	XmlnsSum1                string                `xml:"xmlns:sum1,attr"`
	IDVersion                string                `xml:"sum1:IDVersion"`
	IDFactura                idFactura             `xml:"sum1:IDFactura"`
	NombreRazonEmisor        string                `xml:"sum1:NombreRazonEmisor"`
	TipoFactura              string                `xml:"sum1:TipoFactura"`
	TipoRectificativa        string                `xml:"sum1:TipoRectificativa,omitempty"`
	FacturasRectificadas     *facturasRectificadas `xml:"sum1:FacturasRectificadas,omitempty"`
	DescripcionOperacion     string                `xml:"sum1:DescripcionOperacion"`
	Destinatarios            *destinatarios        `xml:"sum1:Destinatarios,omitempty"`
	Desglose                 desglose              `xml:"sum1:Desglose"`
	CuotaTotal               string                `xml:"sum1:CuotaTotal"`
	ImporteTotal             string                `xml:"sum1:ImporteTotal"`
	Encadenamiento           encadenamiento        `xml:"sum1:Encadenamiento"`
	SistemaInformatico       sistemaInformatico    `xml:"sum1:SistemaInformatico"`
	FechaHoraHusoGenRegistro string                `xml:"sum1:FechaHoraHusoGenRegistro"`
	TipoHuella               string                `xml:"sum1:TipoHuella"`
	Huella                   string                `xml:"sum1:Huella"`
}

// XMLBuilder construye el RegistroAlta y su huella.
type XMLBuilder struct {
	software SoftwareInfo
}

// NewXMLBuilder crea el constructor con los datos del sistema informático.
func NewXMLBuilder(software SoftwareInfo) *XMLBuilder {
	return &XMLBuilder{software: software}
}

// DocumentType tipo Verifactu efectivo: una F1 de importe negativo se declara como rectificativa R1.
func DocumentType(inv *entity.Invoice) entity.DocumentType {
	t := inv.Backup.EffectiveDocumentType()
	if t == entity.DocumentTypeF1 && inv.Amount.Sign() < 0 {
		return entity.DocumentTypeR1
	}
	return t
}

// Build calcula la huella encadenada y genera el XML sin firmar.
func (b *XMLBuilder) Build(in BuildInput) (*Record, error) {
	if in.Company == nil || in.Invoice == nil {
		return nil, fmt.Errorf("verifactu: faltan empresa o factura")
	}
	nif := pkgverifactu.NormalizeNIF(in.Company.NIF)
	if err := pkgverifactu.ValidateNIF(nif); err != nil {
		return nil, err
	}
	inv := in.Invoice
	tipo := DocumentType(inv)

	params := domverifactu.HashParams{
		IDEmisorFactura:          nif,
		NumSerieFactura:          inv.Number,
		FechaExpedicionFactura:   domverifactu.FormatDate(inv.Date),
		TipoFactura:              string(tipo),
		CuotaTotal:               inv.TotalTaxes,
		ImporteTotal:             inv.Amount,
		FechaHoraHusoGenRegistro: domverifactu.FormatTimestamp(in.GeneratedAt),
	}
	if in.Previous != nil {
		params.HuellaAnterior = in.Previous.Hash
	}
	hash, err := domverifactu.CalculateHash(params)
	if err != nil {
		return nil, err
	}

	reg := registroAlta{
		XmlnsSum1: NsSuministroInformacion,
		IDVersion: pkgverifactu.IDVersion,
		IDFactura: idFactura{
			IDEmisorFactura:        nif,
			NumSerieFactura:        inv.Number,
			FechaExpedicionFactura: params.FechaExpedicionFactura,
		},
		NombreRazonEmisor:    in.Company.Name,
		TipoFactura:          string(tipo),
		DescripcionOperacion: description(inv),
		Desglose:             buildDesglose(inv),
		CuotaTotal:           domverifactu.FormatAmount(inv.TotalTaxes),
		ImporteTotal:         domverifactu.FormatAmount(inv.Amount),
		SistemaInformatico: sistemaInformatico{
			NombreRazon:                 b.software.Name,
			NIF:                         pkgverifactu.NormalizeNIF(b.software.NIF),
			NombreSistemaInformatico:    b.software.Name,
			IdSistemaInformatico:        b.software.ID,
			Version:                     b.software.Version,
			NumeroInstalacion:           b.software.InstallationNumber,
			TipoUsoPosibleSoloVerifactu: "S",
			TipoUsoPosibleMultiOT:       "N",
			IndicadorMultiplesOT:        "N",
		},
		FechaHoraHusoGenRegistro: params.FechaHoraHusoGenRegistro,
		TipoHuella:               pkgverifactu.TipoHuellaSHA256,
		Huella:                   hash,
	}
	if tipo.IsRectification() {
		reg.TipoRectificativa = pkgverifactu.TipoRectificativaDiferencias
		if in.Parent != nil {
			reg.FacturasRectificadas = &facturasRectificadas{IDFacturaRectificada: []idFactura{{
				IDEmisorFactura:        nif,
				NumSerieFactura:        in.Parent.Number,
				FechaExpedicionFactura: domverifactu.FormatDate(in.Parent.Date),
			}}}
		}
	}
	if in.Client != nil && in.Client.NIF != "" {
		reg.Destinatarios = &destinatarios{IDDestinatario: []idDestinatario{{
			NombreRazon: in.Client.Name,
			NIF:         pkgverifactu.NormalizeNIF(in.Client.NIF),
		}}}
	}
	if in.Previous == nil {
		reg.Encadenamiento.PrimerRegistro = pkgverifactu.PrimerRegistroSi
	} else {
		reg.Encadenamiento.RegistroAnterior = &registroAnterior{
			IDEmisorFactura:        pkgverifactu.NormalizeNIF(in.Previous.NIF),
			NumSerieFactura:        in.Previous.Number,
			FechaExpedicionFactura: domverifactu.FormatDate(in.Previous.Date),
			Huella:                 in.Previous.Hash,
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(reg); err != nil {
		return nil, fmt.Errorf("verifactu: serializar RegistroAlta: %w", err)
	}
	return &Record{Params: params, Hash: hash, XML: buf.Bytes()}, nil
}

func description(inv *entity.Invoice) string {
	if inv.Backup.Notes != "" {
		return inv.Backup.Notes
	}
	if len(inv.LineItems) > 0 && inv.LineItems[0].Notes != "" {
		return inv.LineItems[0].Notes
	}
	return "Factura " + inv.Number
}

// buildDesglose una línea por impuesto; sin impuestos se declara una base al 0 %.
func buildDesglose(inv *entity.Invoice) desglose {
	var out desglose
	for _, t := range inv.TaxMap() {
		out.DetalleDesglose = append(out.DetalleDesglose, detalleDesglose{
			Impuesto:                      pkgverifactu.ImpuestoIVA,
			ClaveRegimen:                  pkgverifactu.ClaveRegimenGeneral,
			CalificacionOperacion:         pkgverifactu.CalificacionSujetaNoEx,
			TipoImpositivo:                domverifactu.FormatAmount(t.Rate),
			BaseImponibleOimporteNoSujeto: domverifactu.FormatAmount(t.BaseAmount),
			CuotaRepercutida:              domverifactu.FormatAmount(t.TaxAmount),
		})
	}
	if len(out.DetalleDesglose) == 0 {
		out.DetalleDesglose = append(out.DetalleDesglose, detalleDesglose{
			Impuesto:                      pkgverifactu.ImpuestoIVA,
			ClaveRegimen:                  pkgverifactu.ClaveRegimenGeneral,
			CalificacionOperacion:         pkgverifactu.CalificacionSujetaNoEx,
			TipoImpositivo:                domverifactu.FormatAmount(decimal.Zero),
			BaseImponibleOimporteNoSujeto: domverifactu.FormatAmount(inv.NetSubtotal()),
			CuotaRepercutida:              domverifactu.FormatAmount(decimal.Zero),
		})
	}
	return out
}
