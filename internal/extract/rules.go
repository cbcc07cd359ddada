package extract

// Rules holds the keyword and label tables driving field extraction.
// They are injected rather than hard-coded so locales can be tuned and
// tests can use minimal tables.
type Rules struct {
	// Lines equal to these (lowercased) are labels, never vendor or
	// customer names.
	InvalidShopNames     []string `yaml:"invalid_shop_names"`
	InvalidCustomerNames []string `yaml:"invalid_customer_names"`

	// Tokens whose presence disqualifies a VAT number candidate
	// (extraction noise from table headers).
	InvalidVATTokens []string `yaml:"invalid_vat_tokens"`

	// Brand names searched in the top lines of the document.
	KnownVendors []string `yaml:"known_vendors"`

	// Header words and section labels skipped when hunting for the
	// vendor line.
	VendorSkipKeywords []string `yaml:"vendor_skip_keywords"`

	// Labels announcing the supplier block ("Fourni par") and the
	// customer block ("Facturé à").
	SupplierLabels []string `yaml:"supplier_labels"`
	CustomerLabels []string `yaml:"customer_labels"`

	// Legal-entity suffixes and business vocabulary used to tell
	// companies from persons.
	CompanyIndicators []string `yaml:"company_indicators"`
	BusinessWords     []string `yaml:"business_words"`

	// Amount labels, gross (TTC) and net (HT).
	GrossTotalLabels []string `yaml:"gross_total_labels"`
	NetTotalLabels   []string `yaml:"net_total_labels"`

	// Table header keywords opening the line-item section and totals
	// tokens closing it.
	ItemHeaderKeywords []string `yaml:"item_header_keywords"`
	ItemStopTokens     []string `yaml:"item_stop_tokens"`

	// Document type keyword sets, checked in priority order.
	FuelKeywords     []string `yaml:"fuel_keywords"`
	ParkingKeywords  []string `yaml:"parking_keywords"`
	ReceiptKeywords  []string `yaml:"receipt_keywords"`
	InvoiceKeywords  []string `yaml:"invoice_keywords"`
	EstimateKeywords []string `yaml:"estimate_keywords"`

	// Country names rejected as customer/vendor names.
	CountryNames []string `yaml:"country_names"`

	// MaxItems caps the line-item list.
	MaxItems int `yaml:"max_items"`
}

// DefaultRules returns the French/English tables the service ships with.
func DefaultRules() *Rules {
	return &Rules{
		InvalidShopNames: []string{
			"fourni par", "provided by", "fournisseur", "supplier",
			"facturé à", "facture à", "billed to", "client", "customer",
			"adresse", "address", "tél", "tel", "email", "siret", "siren",
			"tva", "vat", "iban", "bic", "date", "facture", "invoice",
		},
		InvalidCustomerNames: []string{
			"facturé à", "facture à", "billed to", "client", "customer",
			"fourni par", "provided by", "adresse", "address", "tél", "tel",
			"email", "siret", "siren", "tva", "vat", "iban", "bic", "date",
			"facture", "invoice", "shop name", "nom", "name",
		},
		InvalidVATTokens: []string{
			"quantité", "quantite", "quantity", "tva", "vat", "description", "prix",
		},
		KnownVendors: []string{
			"ELECTRA", "TOTAL", "ESSO", "SHELL", "BP", "AVIA", "CARREFOUR",
			"LECLERC", "AUCHAN", "CASINO", "MONOPRIX", "INTERMARCHE",
			"CENTRE DE LAVAGE", "WASH", "STATION", "RELAIS",
		},
		VendorSkipKeywords: []string{
			"FACTURE", "INVOICE", "DEVIS", "REÇU", "RECU", "TICKET", "BON",
			"DATE", "CLIENT", "CUSTOMER", "ADRESSE", "ADDRESS", "TÉL", "TEL",
			"SIRET", "SIREN", "TVA", "VAT", "IBAN", "BIC", "N°", "NUMERO",
			"FOURNI PAR", "PROVIDED BY", "FACTURÉ À", "FACTURE À", "BILLED TO",
			"MERCI", "THANK YOU", "A BIENTOT", "SEE YOU SOON",
		},
		SupplierLabels: []string{
			"FOURNI PAR", "PROVIDED BY", "FOURNISSEUR", "SUPPLIER",
		},
		CustomerLabels: []string{
			"FACTURÉ À", "FACTURE À", "BILLED TO", "CLIENT", "CUSTOMER",
		},
		CompanyIndicators: []string{
			"SARL", "SAS", "SA", "SRL", "LTD", "LLC", "INC", "CORP", "GMBH",
			"SOCIÉTÉ", "SOCIETE", "SOCIETY", "COMPANY", "ENTREPRISE",
			"EURL", "SNC", "SCA", "SCS", "SCI", "ASSOCIATION", "ASSO",
		},
		BusinessWords: []string{
			"SERVICES", "SOLUTIONS", "TECHNOLOGIES", "SYSTEMS", "GROUP",
			"GROUPEMENT", "HOLDING", "INTERNATIONAL", "FRANCE", "EUROPE",
		},
		GrossTotalLabels: []string{
			"TOTAL TTC", "TTC", "NET A PAYER", "NET À PAYER", "TOTAL",
			"MONTANT TTC", "À PAYER", "A PAYER", "TOTAL GÉNÉRAL",
		},
		NetTotalLabels: []string{
			"TOTAL HT", "HT", "SOUS-TOTAL", "SUBTOTAL", "MONTANT HT",
			"TOTAL HORS TAXE", "HORS TAXE",
		},
		ItemHeaderKeywords: []string{
			"DESCRIPTION", "DESIGNATION", "DÉSIGNATION", "LIBELLÉ", "LIBELLE",
			"QTE", "QTÉ", "QUANTITÉ", "QUANTITE", "QUANTITY", "QTY",
			"PRIX", "UNITAIRE", "MONTANT", "ÉNERGIE", "ENERGIE",
		},
		ItemStopTokens: []string{
			"PRIX TOTAL HT", "PRIX TOTAL TTC", "TOTAL HT", "TOTAL TTC",
			"NET A PAYER", "NET À PAYER", "TVA", "VAT", "SOUS-TOTAL",
		},
		FuelKeywords: []string{
			"STATION", "ESSENCE", "CARBURANT", "GAZOLE", "DIESEL",
			"SP95", "SP98", "E10", "E85", "LITRE", "LITRES",
			"KILOMETRE", "KILOMETRES", "KILOMETRAGE",
			"PUMP", "POMPE", "NOZZLE", "BUSE", "STATION ID",
		},
		ParkingKeywords: []string{
			"PARKING", "HORODATEUR", "HORODATAGE",
			"ENTREE", "ENTRÉE", "SORTIE", "DURÉE", "DUREE",
		},
		ReceiptKeywords: []string{
			"TICKET CLIENT", "TICKET DE CAISSE", "RECU", "REÇU", "RECEIPT",
			"CAISSE", "CASHIER", "CAISSIER", "CAISSIERE", "TICKET",
			"ARTICLE", "ARTICLES", "MERCI", "THANK YOU",
		},
		InvoiceKeywords: []string{
			"FACTURE", "INVOICE",
			"DATE DE FACTURATION", "DATE D'ÉCHÉANCE", "DATE D'ECHEANCE",
			"FOURNI PAR", "PROVIDED BY", "FACTURÉ À", "BILLED TO",
			"PRIX HT", "PRIX TTC", "TVA", "VAT", "TOTAL HT", "TOTAL TTC",
		},
		EstimateKeywords: []string{
			"DEVIS", "QUOTE", "ESTIMATE", "ESTIMATION",
		},
		CountryNames: []string{
			"france", "belgium", "belgique", "spain", "espagne",
			"italy", "italie", "germany", "allemagne",
			"netherlands", "pays-bas", "uk", "united kingdom",
			"portugal", "suisse", "switzerland", "luxembourg",
			"autriche", "austria", "pologne", "poland",
			"roumanie", "romania", "hongrie", "hungary",
		},
		MaxItems: 50,
	}
}
