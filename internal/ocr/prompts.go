package ocr

// Prompts sent with each image. The JSON keys requested here are the keys
// the records normalizers read, so they must stay in sync with
// records.PersonKeys and records.VehicleKeys.
const (
	IdentityPrompt = `Analiza este documento de identidad español (DNI o NIE) y extrae la siguiente información en formato JSON:
{
  "nombre": "nombre completo",
  "dni": "número de DNI/NIE",
  "fechaNacimiento": "fecha de nacimiento (DD/MM/AAAA)",
  "direccion": "dirección completa (calle, número, piso, puerta)",
  "poblacion": "ciudad/municipio y código postal",
  "fechaCaducidad": "fecha de caducidad (DD/MM/AAAA)"
}

INSTRUCCIONES ESPECÍFICAS:
- Para DIRECCIÓN: incluye calle, número, piso, puerta si están visibles. Ejemplo: "C/ MAYOR 123, 2º A"
- Para POBLACIÓN: incluye ciudad/municipio y código postal si están visibles. Ejemplo: "MADRID 28001"
- Si la dirección aparece en una sola línea, sepárala en dirección (calle/número) y población (ciudad/CP)
- Si algún campo no está visible o no se puede leer claramente, usa null para ese campo

Responde únicamente con el JSON, sin texto adicional.`

	TechnicalSheetPrompt = `Analiza esta ficha técnica de vehículo española (tarjeta ITV) y extrae la siguiente información en formato JSON:
{
  "marca": "D.1 Marca del vehículo",
  "modelo": "D.2 Tipo/Variante/Versión",
  "denominacionComercial": "D.3 Denominación comercial del vehículo",
  "matricula": "número de matrícula del vehículo",
  "bastidor": "E Nº de identificación del vehículo (VIN/Bastidor)",
  "fechaMatriculacion": "fecha de primera matriculación",
  "categoria": "J Categoría del vehículo",
  "carroceria": "J.1 Carrocería del vehículo",
  "clase": "J.2 Clase",
  "cilindrada": "P.1 Cilindrada (en cm³)",
  "potencia": "P.2 Potencia de motor (en kW o CV)",
  "potenciaFiscal": "P.2.1 Potencia fiscal",
  "combustible": "P.3 Tipo de combustible o fuente de energía",
  "codigoMotor": "P.5 Código de identificación del motor",
  "fabricanteMotor": "P.5.1 Fabricante o marca del motor",
  "plazasAsiento": "S.1 Nº de plazas asiento",
  "plazasPie": "S.2 Nº de plazas de pie",
  "velocidadMaxima": "T Velocidad máxima",
  "masaOrdenMarcha": "G Masa en Orden de marcha (MOM)",
  "masaMaxima": "F.2 Masa Máxima en carga Admisible del Vehículo en circulación (MMA)",
  "masaMaximaTecnica": "F.1 Masa Máxima en carga Técnicamente Admisible (MMTA)",
  "dimensionesNeumaticos": "L.2 Dimensiones de los neumáticos",
  "numeroEjes": "L Nº de ejes y ruedas",
  "ejesMotrices": "L.1 Ejes motrices",
  "distanciaEjes": "M.1 Distancia entre ejes",
  "longitud": "F.6 Longitud total",
  "anchura": "F.5 Anchura total",
  "altura": "F.4 Altura total",
  "masaRemolcable": "O.1 Masa Remolcable con frenos",
  "color": "R Color",
  "emisiones": "V.7 Emisiones de CO2",
  "nivelEmisiones": "V.9 Nivel de emisiones",
  "homologacion": "K Nº de homologación del vehículo",
  "procedencia": "D.6 Procedencia"
}

INSTRUCCIONES ESPECÍFICAS:
- El campo E contiene el número de bastidor/VIN
- Los campos F.1, F.2 se refieren a masas máximas y el campo G a la masa en orden de marcha
- Los campos P.1, P.2, P.3 son datos del motor (cilindrada, potencia, combustible)
- Los campos S.1, S.2 son datos de plazas
- Si algún campo no está visible o no se puede leer claramente, usa null para ese campo
- Para fechas, usa formato DD/MM/AAAA si es posible
- Para masas incluye la unidad si está visible (kg); para potencia, kW o CV

Responde únicamente con el JSON, sin texto adicional.`
)

// PromptFor returns the extraction prompt of a document kind
func PromptFor(kind Kind) string {
	if kind == KindTechnicalSheet {
		return TechnicalSheetPrompt
	}
	return IdentityPrompt
}
