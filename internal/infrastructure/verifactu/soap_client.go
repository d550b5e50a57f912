package verifactu

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"

	"github.com/jhoicas/invorya-ledger/internal/domain"
	pkgverifactu "github.com/jhoicas/invorya-ledger/pkg/verifactu"
)

// ── Endpoints ────────────────────────────────────────────────────────────────

const (
	soapURLTest = "https://prewww1.aeat.es/wlpl/TIKE-CONT/ws/SistemaFacturacion/VerifactuSOAP"
	soapURLProd = "https://www1.agenciatributaria.gob.es/wlpl/TIKE-CONT/ws/SistemaFacturacion/VerifactuSOAP"

	soapNS = "http://schemas.xmlsoap.org/soap/envelope/"
)

// ── Puerto ───────────────────────────────────────────────────────────────────

// SubmitRequest registro firmado y cabecera del obligado a emitir.
type SubmitRequest struct {
	NIF      string
	Name     string
	Registro []byte // RegistroAlta firmado
	Hash     string
}

// SubmitResult respuesta de la AEAT. Un Incorrecto es un resultado, no un error.
type SubmitResult struct {
	Status string // Correcto | ParcialmenteCorrecto | Incorrecto
	CSV    string
	Errors []string
	Raw    []byte
}

// Submitter entrega registros al servicio VerifactuSOAP. Devuelve error solo ante fallos de
// transporte o SOAP Fault; para tests se inyecta un doble.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
}

// ── Cliente SOAP ─────────────────────────────────────────────────────────────

// SOAPClient implementa Submitter con mTLS usando el certificado del emisor.
type SOAPClient struct {
	env        string
	url        string
	httpClient *http.Client
}

// NewSOAPClient construye el cliente para env (dev|test|prod).
func NewSOAPClient(env string, cert tls.Certificate) (*SOAPClient, error) {
	c := &SOAPClient{env: env}
	switch env {
	case pkgverifactu.AppEnvDev:
		return c, nil
	case pkgverifactu.AppEnvTest:
		c.url = soapURLTest
	case pkgverifactu.AppEnvProd:
		c.url = soapURLProd
	default:
		return nil, fmt.Errorf("verifactu: entorno desconocido %q (usar dev, test o prod)", env)
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("verifactu: el entorno %s requiere certificado", env)
	}
	c.httpClient = &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12},
		},
	}
	return c, nil
}

// NewSOAPClientWithHTTP cliente contra una URL arbitraria (tests).
func NewSOAPClientWithHTTP(url string, httpClient *http.Client) *SOAPClient {
	return &SOAPClient{env: pkgverifactu.AppEnvTest, url: url, httpClient: httpClient}
}

// Submit envía el RegistroFactura. En dev no hay envío: se simula un Correcto.
func (c *SOAPClient) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if c.env == pkgverifactu.AppEnvDev {
		csv := "DEV"
		if len(req.Hash) >= 16 {
			csv += req.Hash[:16]
		}
		return &SubmitResult{Status: pkgverifactu.EstadoCorrecto, CSV: csv}, nil
	}

	payload, err := BuildEnvelope(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("soap: timeout o cancelación: %w: %w", ctx.Err(), domain.ErrFiscalSubmission)
		}
		return nil, fmt.Errorf("soap: llamada HTTP fallida: %v: %w", err, domain.ErrFiscalSubmission)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("soap: leer respuesta: %v: %w", err, domain.ErrFiscalSubmission)
	}
	return ParseResponse(rawBody)
}

// BuildEnvelope arma RegFactuSistemaFacturacion con la Cabecera y el registro firmado tal cual.
func BuildEnvelope(req SubmitRequest) ([]byte, error) {
	registro := etree.NewDocument()
	if err := registro.ReadFromBytes(req.Registro); err != nil {
		return nil, fmt.Errorf("soap: parsear registro: %w", err)
	}
	if registro.Root() == nil {
		return nil, fmt.Errorf("soap: registro sin raíz")
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	env := doc.CreateElement("soapenv:Envelope")
	env.CreateAttr("xmlns:soapenv", soapNS)
	env.CreateAttr("xmlns:sum", NsSuministroLR)
	env.CreateAttr("xmlns:sum1", NsSuministroInformacion)
	env.CreateElement("soapenv:Header")
	body := env.CreateElement("soapenv:Body")
	reg := body.CreateElement("sum:RegFactuSistemaFacturacion")

	cab := reg.CreateElement("sum:Cabecera")
	obligado := cab.CreateElement("sum1:ObligadoEmision")
	obligado.CreateElement("sum1:NombreRazon").SetText(req.Name)
	obligado.CreateElement("sum1:NIF").SetText(pkgverifactu.NormalizeNIF(req.NIF))

	rf := reg.CreateElement("sum:RegistroFactura")
	rf.AddChild(registro.Root())

	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// ── Respuesta ────────────────────────────────────────────────────────────────

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	Respuesta *respuestaRegFactu `xml:"RespuestaRegFactuSistemaFacturacion"`
	Fault     *soapFault         `xml:"Fault"`
}

type respuestaRegFactu struct {
	CSV            string           `xml:"CSV"`
	EstadoEnvio    string           `xml:"EstadoEnvio"`
	RespuestaLinea []respuestaLinea `xml:"RespuestaLinea"`
}

type respuestaLinea struct {
	EstadoRegistro           string `xml:"EstadoRegistro"`
	CodigoErrorRegistro      string `xml:"CodigoErrorRegistro"`
	DescripcionErrorRegistro string `xml:"DescripcionErrorRegistro"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

// ParseResponse extrae EstadoEnvio, CSV y errores por línea. Un SOAP Fault o una respuesta
// ilegible son fallos de envío (ErrFiscalSubmission).
func ParseResponse(rawBody []byte) (*SubmitResult, error) {
	var envResp soapResponseEnvelope
	if err := xml.Unmarshal(rawBody, &envResp); err != nil {
		return nil, fmt.Errorf("soap: respuesta ilegible: %v: %w", err, domain.ErrFiscalSubmission)
	}
	if f := envResp.Body.Fault; f != nil {
		return nil, fmt.Errorf("soap: fault [%s] %s: %w", f.FaultCode, f.FaultString, domain.ErrFiscalSubmission)
	}
	r := envResp.Body.Respuesta
	if r == nil || r.EstadoEnvio == "" {
		return nil, fmt.Errorf("soap: respuesta sin EstadoEnvio: %w", domain.ErrFiscalSubmission)
	}

	res := &SubmitResult{Status: r.EstadoEnvio, CSV: r.CSV, Raw: rawBody}
	for _, l := range r.RespuestaLinea {
		if l.CodigoErrorRegistro == "" && l.DescripcionErrorRegistro == "" {
			continue
		}
		res.Errors = append(res.Errors, fmt.Sprintf("[%s] %s", l.CodigoErrorRegistro, l.DescripcionErrorRegistro))
	}
	return res, nil
}

var _ Submitter = (*SOAPClient)(nil)
