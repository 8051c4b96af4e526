package pdfstamp

// Legal basis texts printed into the certification footer and report pages.
// Wording mirrors the statutes governing electronic signatures in Brazil.
const (
	footerBanner = "Documento assinado digitalmente conforme MP 2.200-2/2001 e Lei 14.063/2020."

	reportTitleA = "RELATORIO DE ASSINATURA DIGITAL"
	reportTitleB = "EVIDENCIAS BIOMETRICAS E FUNDAMENTACAO LEGAL"

	legalCitationMP = "MP 2.200-2/2001, Art. 10, par. 2: admite-se a validade de assinaturas " +
		"eletronicas realizadas por outros meios de comprovacao de autoria e integridade, " +
		"desde que admitidas pelas partes como validas."
	legalCitationLei = "Lei 14.063/2020, Art. 4, II: assinatura eletronica avancada - a que " +
		"utiliza certificados nao emitidos pela ICP-Brasil ou outro meio de comprovacao " +
		"da autoria e da integridade de documentos em forma eletronica."

	closingStatement = "Qualquer alteracao neste documento invalida a assinatura. " +
		"A autenticidade pode ser conferida a qualquer momento pelo endereco de verificacao acima."

	facialNotCollected = "CAPTURA FACIAL NAO COLETADA"

	confidentialLabel = "CONFIDENCIAL"
)
