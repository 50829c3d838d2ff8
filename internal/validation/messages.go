package validation

// messages are keyed by "<json field>|<validator tag>".
var messages = map[string]string{
	"employee_number|notblank": "Le numéro d'employé est requis",
	"employee_number|max":      "Le numéro d'employé ne peut pas dépasser 50 caractères",
	"first_name|notblank":      "Le prénom est requis",
	"first_name|max":           "Le prénom ne peut pas dépasser 100 caractères",
	"last_name|notblank":       "Le nom est requis",
	"last_name|max":            "Le nom ne peut pas dépasser 100 caractères",
	"email|notblank":           "L'email est requis",
	"email|emailfmt":           "Email invalide",
	"email|max":                "L'email ne peut pas dépasser 255 caractères",
	"phone|max":                "Le téléphone ne peut pas dépasser 50 caractères",
	"department|max":           "Le département ne peut pas dépasser 100 caractères",

	"operator_id|required": "Veuillez sélectionner un opérateur",
	"operator_id|uuid":     "Opérateur invalide",
	"start_date|required":  "La date de début est requise",
	"start_date|isodate":   "Format de date invalide (AAAA-MM-JJ)",
	"end_date|required":    "La date de fin est requise",
	"end_date|isodate":     "Format de date invalide (AAAA-MM-JJ)",
	"notes|max":            "Les notes ne peuvent pas dépasser 1000 caractères",

	"license_plate|notblank": "La plaque d'immatriculation est requise",
	"license_plate|plate":    "Format invalide (ex: AA-123-BB)",
	"brand|notblank":         "La marque est requise",
	"model|notblank":         "Le modèle est requis",
	"status|required":        "Le statut est requis",
	"status|oneof":           "Statut invalide",

	"password|required":         "Le mot de passe est requis",
	"current_password|required": "Le mot de passe actuel est requis",
	"new_password|required":     "Le nouveau mot de passe est requis",
	"new_password|password":     "Le mot de passe doit contenir au moins 8 caractères, 1 majuscule, 1 minuscule et 1 chiffre",
	"role|required":             "Le rôle est requis",
	"role|oneof":                "Rôle invalide",
	"otp|required":              "Le code de vérification est requis",

	"page|gte":      "La page doit être supérieure ou égale à 1",
	"page|lte":      "La page ne peut pas dépasser 1000000",
	"limit|gte":     "La limite doit être comprise entre 1 et 100",
	"limit|lte":     "La limite doit être comprise entre 1 et 100",
	"sort_by|oneof": "Critère de tri invalide",
	"order|oneof":   "L'ordre doit être asc ou desc",
}

const (
	msgStartDateInPast   = "La date de début ne peut pas être dans le passé"
	msgEndBeforeStartFmt = "La date de fin ne peut pas être antérieure à la date de début (%s)"
	msgPasswordMismatch  = "Les mots de passe ne correspondent pas"
)
