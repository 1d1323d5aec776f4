package geo

import "strings"

// VocabularyVersion 参考词表版本，词表变更时递增，用于判断历史数据是否需要重新校验
const VocabularyVersion = "2026.10"

// countryNames 国家参考表（规范名称）
var countryNames = []string{
	"Afghanistan", "Albania", "Algeria", "Andorra", "Angola", "Antigua and Barbuda",
	"Argentina", "Armenia", "Australia", "Austria", "Azerbaijan", "Bahamas", "Bahrain",
	"Bangladesh", "Barbados", "Belarus", "Belgium", "Belize", "Benin", "Bhutan", "Bolivia",
	"Bosnia and Herzegovina", "Botswana", "Brazil", "Brunei", "Bulgaria", "Burkina Faso",
	"Burundi", "Cambodia", "Cameroon", "Canada", "Cape Verde", "Central African Republic",
	"Chad", "Chile", "China", "Colombia", "Comoros", "Costa Rica", "Croatia", "Cuba",
	"Cyprus", "Czech Republic", "Democratic Republic of the Congo", "Denmark", "Djibouti",
	"Dominica", "Dominican Republic", "Ecuador", "Egypt", "El Salvador", "Equatorial Guinea",
	"Eritrea", "Estonia", "Eswatini", "Ethiopia", "Fiji", "Finland", "France", "Gabon",
	"Gambia", "Georgia", "Germany", "Ghana", "Greece", "Grenada", "Guatemala", "Guinea",
	"Guinea-Bissau", "Guyana", "Haiti", "Honduras", "Hong Kong", "Hungary", "Iceland",
	"India", "Indonesia", "Iran", "Iraq", "Ireland", "Israel", "Italy", "Ivory Coast",
	"Jamaica", "Japan", "Jordan", "Kazakhstan", "Kenya", "Kiribati", "Kosovo", "Kuwait",
	"Kyrgyzstan", "Laos", "Latvia", "Lebanon", "Lesotho", "Liberia", "Libya",
	"Liechtenstein", "Lithuania", "Luxembourg", "Madagascar", "Malawi", "Malaysia",
	"Maldives", "Mali", "Malta", "Marshall Islands", "Mauritania", "Mauritius", "Mexico",
	"Micronesia", "Moldova", "Monaco", "Mongolia", "Montenegro", "Morocco", "Mozambique",
	"Myanmar", "Namibia", "Nauru", "Nepal", "Netherlands", "New Zealand", "Nicaragua",
	"Niger", "Nigeria", "North Korea", "North Macedonia", "Norway", "Oman", "Pakistan",
	"Palau", "Palestine", "Panama", "Papua New Guinea", "Paraguay", "Peru", "Philippines",
	"Poland", "Portugal", "Qatar", "Republic of the Congo", "Romania", "Russia", "Rwanda",
	"Saint Kitts and Nevis", "Saint Lucia", "Saint Vincent and the Grenadines", "Samoa",
	"San Marino", "Sao Tome and Principe", "Saudi Arabia", "Senegal", "Serbia",
	"Seychelles", "Sierra Leone", "Singapore", "Slovakia", "Slovenia", "Solomon Islands",
	"Somalia", "South Africa", "South Korea", "South Sudan", "Spain", "Sri Lanka", "Sudan",
	"Suriname", "Sweden", "Switzerland", "Syria", "Taiwan", "Tajikistan", "Tanzania",
	"Thailand", "Timor-Leste", "Togo", "Tonga", "Trinidad and Tobago", "Tunisia", "Turkey",
	"Turkmenistan", "Tuvalu", "Uganda", "Ukraine", "United Arab Emirates", "United Kingdom",
	"United States", "Uruguay", "Uzbekistan", "Vanuatu", "Vatican City", "Venezuela",
	"Vietnam", "Yemen", "Zambia", "Zimbabwe",
	// 常见海外属地
	"Gibraltar", "Isle of Man", "Jersey", "Guernsey", "Puerto Rico", "Greenland",
	"Faroe Islands", "Bermuda", "Cayman Islands",
}

// countryAliases 别名、缩写与历史名称 → 规范名称
var countryAliases = map[string]string{
	"uk":                       "United Kingdom",
	"u.k.":                     "United Kingdom",
	"gb":                       "United Kingdom",
	"gbr":                      "United Kingdom",
	"great britain":            "United Kingdom",
	"britain":                  "United Kingdom",
	"us":                       "United States",
	"u.s.":                     "United States",
	"usa":                      "United States",
	"u.s.a.":                   "United States",
	"united states of america": "United States",
	"america":                  "United States",
	"uae":                      "United Arab Emirates",
	"holland":                  "Netherlands",
	"the netherlands":          "Netherlands",
	"deutschland":              "Germany",
	"españa":                   "Spain",
	"espana":                   "Spain",
	"italia":                   "Italy",
	"éire":                     "Ireland",
	"eire":                     "Ireland",
	"republic of ireland":      "Ireland",
	"czechia":                  "Czech Republic",
	"côte d'ivoire":            "Ivory Coast",
	"cote d'ivoire":            "Ivory Coast",
	"burma":                    "Myanmar",
	"swaziland":                "Eswatini",
	"macedonia":                "North Macedonia",
	"east timor":               "Timor-Leste",
	"cabo verde":               "Cape Verde",
	"türkiye":                  "Turkey",
	"turkiye":                  "Turkey",
	"korea, republic of":       "South Korea",
	"republic of korea":        "South Korea",
	"russian federation":       "Russia",
	"viet nam":                 "Vietnam",
	"au":                       "Australia",
	"ca":                       "Canada",
	"nz":                       "New Zealand",
	"ie":                       "Ireland",
	"de":                       "Germany",
	"fr":                       "France",
	"es":                       "Spain",
	"it":                       "Italy",
	"nl":                       "Netherlands",
	"united kingdom of great britain and northern ireland": "United Kingdom",

	// 历史领土名称
	"zaire":          "Democratic Republic of the Congo",
	"ceylon":         "Sri Lanka",
	"siam":           "Thailand",
	"persia":         "Iran",
	"rhodesia":       "Zimbabwe",
	"czechoslovakia": "Czech Republic",
	"yugoslavia":     "Serbia",
	"ussr":           "Russia",
	"soviet union":   "Russia",
}

// subdivisions 省/州/地区参考表：国家 → 下属行政区划
var subdivisions = map[string][]string{
	"United Kingdom": {
		"England", "Scotland", "Wales", "Northern Ireland",
		"Bedfordshire", "Berkshire", "Bristol", "Buckinghamshire", "Cambridgeshire", "Cheshire",
		"City of London", "Cornwall", "Cumbria", "Derbyshire", "Devon", "Dorset", "Durham",
		"East Riding of Yorkshire", "East Sussex", "Essex", "Gloucestershire", "Greater London",
		"Greater Manchester", "Hampshire", "Herefordshire", "Hertfordshire", "Isle of Wight",
		"Kent", "Lancashire", "Leicestershire", "Lincolnshire", "Merseyside", "Norfolk",
		"North Yorkshire", "Northamptonshire", "Northumberland", "Nottinghamshire",
		"Oxfordshire", "Rutland", "Shropshire", "Somerset", "South Yorkshire", "Staffordshire",
		"Suffolk", "Surrey", "Tyne and Wear", "Warwickshire", "West Midlands", "West Sussex",
		"West Yorkshire", "Wiltshire", "Worcestershire",
		"Aberdeenshire", "Angus", "Argyll and Bute", "City of Edinburgh", "Fife", "Glasgow City",
		"Highland", "Lothian", "Perth and Kinross", "Stirling",
		"Cardiff", "Gwynedd", "Pembrokeshire", "Powys", "Swansea",
		"Antrim", "Armagh", "Down", "Fermanagh", "Londonderry", "Tyrone",
	},
	"United States": {
		"Alabama", "Alaska", "Arizona", "Arkansas", "California", "Colorado", "Connecticut",
		"Delaware", "District of Columbia", "Florida", "Georgia", "Hawaii", "Idaho", "Illinois",
		"Indiana", "Iowa", "Kansas", "Kentucky", "Louisiana", "Maine", "Maryland",
		"Massachusetts", "Michigan", "Minnesota", "Mississippi", "Missouri", "Montana",
		"Nebraska", "Nevada", "New Hampshire", "New Jersey", "New Mexico", "New York",
		"North Carolina", "North Dakota", "Ohio", "Oklahoma", "Oregon", "Pennsylvania",
		"Rhode Island", "South Carolina", "South Dakota", "Tennessee", "Texas", "Utah",
		"Vermont", "Virginia", "Washington", "West Virginia", "Wisconsin", "Wyoming",
	},
	"Canada": {
		"Alberta", "British Columbia", "Manitoba", "New Brunswick", "Newfoundland and Labrador",
		"Northwest Territories", "Nova Scotia", "Nunavut", "Ontario", "Prince Edward Island",
		"Quebec", "Saskatchewan", "Yukon",
	},
	"Australia": {
		"Australian Capital Territory", "New South Wales", "Northern Territory", "Queensland",
		"South Australia", "Tasmania", "Victoria", "Western Australia",
	},
	"Germany": {
		"Baden-Württemberg", "Bavaria", "Berlin", "Brandenburg", "Bremen", "Hamburg", "Hesse",
		"Lower Saxony", "Mecklenburg-Vorpommern", "North Rhine-Westphalia",
		"Rhineland-Palatinate", "Saarland", "Saxony", "Saxony-Anhalt", "Schleswig-Holstein",
		"Thuringia",
	},
	"France": {
		"Auvergne-Rhône-Alpes", "Bourgogne-Franche-Comté", "Brittany", "Centre-Val de Loire",
		"Corsica", "Grand Est", "Hauts-de-France", "Île-de-France", "Normandy",
		"Nouvelle-Aquitaine", "Occitanie", "Pays de la Loire", "Provence-Alpes-Côte d'Azur",
	},
	"Spain": {
		"Andalusia", "Aragon", "Asturias", "Balearic Islands", "Basque Country",
		"Canary Islands", "Cantabria", "Castile and León", "Castilla-La Mancha", "Catalonia",
		"Extremadura", "Galicia", "La Rioja", "Madrid", "Murcia", "Navarre", "Valencia",
	},
	"Italy": {
		"Abruzzo", "Apulia", "Basilicata", "Calabria", "Campania", "Emilia-Romagna",
		"Friuli-Venezia Giulia", "Lazio", "Liguria", "Lombardy", "Marche", "Molise", "Piedmont",
		"Sardinia", "Sicily", "Trentino-Alto Adige", "Tuscany", "Umbria", "Aosta Valley", "Veneto",
	},
	"Netherlands": {
		"Drenthe", "Flevoland", "Friesland", "Gelderland", "Groningen", "Limburg",
		"North Brabant", "North Holland", "Overijssel", "South Holland", "Utrecht", "Zeeland",
	},
	"Ireland": {
		"Carlow", "Cavan", "Clare", "Cork", "Donegal", "Dublin", "Galway", "Kerry", "Kildare",
		"Kilkenny", "Laois", "Leitrim", "Limerick", "Longford", "Louth", "Mayo", "Meath",
		"Monaghan", "Offaly", "Roscommon", "Sligo", "Tipperary", "Waterford", "Westmeath",
		"Wexford", "Wicklow",
	},
}

// subdivisionAliases 行政区划缩写 → 规范名称
var subdivisionAliases = map[string]string{
	"al": "Alabama", "ak": "Alaska", "az": "Arizona", "ar": "Arkansas", "ca": "California",
	"co": "Colorado", "ct": "Connecticut", "de": "Delaware", "dc": "District of Columbia",
	"fl": "Florida", "ga": "Georgia", "hi": "Hawaii", "id": "Idaho", "il": "Illinois",
	"in": "Indiana", "ia": "Iowa", "ks": "Kansas", "ky": "Kentucky", "la": "Louisiana",
	"me": "Maine", "md": "Maryland", "ma": "Massachusetts", "mi": "Michigan",
	"mn": "Minnesota", "ms": "Mississippi", "mo": "Missouri", "mt": "Montana",
	"ne": "Nebraska", "nv": "Nevada", "nh": "New Hampshire", "nj": "New Jersey",
	"nm": "New Mexico", "ny": "New York", "nc": "North Carolina", "nd": "North Dakota",
	"oh": "Ohio", "ok": "Oklahoma", "or": "Oregon", "pa": "Pennsylvania",
	"ri": "Rhode Island", "sc": "South Carolina", "sd": "South Dakota", "tn": "Tennessee",
	"tx": "Texas", "ut": "Utah", "vt": "Vermont", "va": "Virginia", "wa": "Washington",
	"wv": "West Virginia", "wi": "Wisconsin", "wy": "Wyoming",
	"ab": "Alberta", "bc": "British Columbia", "mb": "Manitoba", "nb": "New Brunswick",
	"nl": "Newfoundland and Labrador", "nt": "Northwest Territories", "ns": "Nova Scotia",
	"nu": "Nunavut", "on": "Ontario", "pe": "Prince Edward Island", "qc": "Quebec",
	"sk": "Saskatchewan", "yt": "Yukon",
	"act": "Australian Capital Territory", "nsw": "New South Wales", "qld": "Queensland",
	"tas": "Tasmania", "vic": "Victoria",
	"eng": "England", "sct": "Scotland", "wls": "Wales", "nir": "Northern Ireland",
	"bayern": "Bavaria", "nordrhein-westfalen": "North Rhine-Westphalia",
	"county durham": "Durham", "london": "Greater London",
}

var (
	countryIndex     map[string]string
	subdivisionIndex map[string]string
)

func init() {
	countryIndex = make(map[string]string, len(countryNames)+len(countryAliases))
	for _, name := range countryNames {
		countryIndex[normalizeKey(name)] = name
	}
	for alias, name := range countryAliases {
		countryIndex[normalizeKey(alias)] = name
	}

	subdivisionIndex = make(map[string]string, 512)
	for _, names := range subdivisions {
		for _, name := range names {
			subdivisionIndex[normalizeKey(name)] = name
		}
	}
	for alias, name := range subdivisionAliases {
		subdivisionIndex[normalizeKey(alias)] = name
	}
}

// normalizeKey 词表查找键：小写、去首尾空白、合并内部空白
func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Countries 返回国家参考表（规范名称）的副本
func Countries() []string {
	out := make([]string, len(countryNames))
	copy(out, countryNames)
	return out
}

// SubdivisionsOf 返回指定国家的行政区划参考表
func SubdivisionsOf(country string) []string {
	names := subdivisions[country]
	out := make([]string, len(names))
	copy(out, names)
	return out
}
