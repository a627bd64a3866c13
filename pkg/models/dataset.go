package models

// DatasetRow is one policy in the ML training extract. The same struct is
// serialized to CSV and Parquet, so dates travel as ISO strings.
type DatasetRow struct {
	PolicyNumber string  `csv:"NUMERO_POLIZA" parquet:"name=numero_poliza, type=BYTE_ARRAY, convertedtype=UTF8"`
	ClientID     int64   `csv:"CLIENTE_ID" parquet:"name=cliente_id, type=INT64"`
	ClientName   string  `csv:"CLIENTE_NOMBRE" parquet:"name=cliente_nombre, type=BYTE_ARRAY, convertedtype=UTF8"`
	AmountUF     float64 `csv:"MONTO_UF" parquet:"name=monto_uf, type=DOUBLE"`
	Status       string  `csv:"ESTADO" parquet:"name=estado, type=BYTE_ARRAY, convertedtype=UTF8"`
	StartDate    string  `csv:"FECHA_INICIO" parquet:"name=fecha_inicio, type=BYTE_ARRAY, convertedtype=UTF8"`
	EndDate      string  `csv:"FECHA_VENCIMIENTO" parquet:"name=fecha_vencimiento, type=BYTE_ARRAY, convertedtype=UTF8"`
	TermDays     int32   `csv:"DIAS_VIGENCIA" parquet:"name=dias_vigencia, type=INT32"`

	TotalCollections   int32 `csv:"TOTAL_COBRANZAS" parquet:"name=total_cobranzas, type=INT32"`
	PaidCollections    int32 `csv:"COBRANZAS_PAGADAS" parquet:"name=cobranzas_pagadas, type=INT32"`
	PendingCollections int32 `csv:"COBRANZAS_PENDIENTES" parquet:"name=cobranzas_pendientes, type=INT32"`

	TotalAlerts    int32 `csv:"TOTAL_ALERTAS" parquet:"name=total_alertas, type=INT32"`
	CriticalAlerts int32 `csv:"ALERTAS_CRITICAS" parquet:"name=alertas_criticas, type=INT32"`
}
