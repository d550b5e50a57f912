package verifactu

import "crypto/tls"

// Signer firma un registro XML y devuelve el XML con la firma XML-DSig envuelta.
type Signer interface {
	// Sign toma el XML sin firma y el certificado con llave privada,
	// y retorna el XML con ds:Signature como último hijo del elemento firmado.
	Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error)
}
