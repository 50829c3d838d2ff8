package utils

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/goldenkiwi/autoparc/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonFirstNames = []string{
	"Jean", "Marie", "Pierre", "Sophie", "Luc", "Camille", "Nicolas", "Julie", "Thomas", "Claire",
	"Antoine", "Emma", "Hugo", "Léa", "Mathieu", "Chloé", "Julien", "Manon", "Alexandre", "Inès",
}

var commonLastNames = []string{
	"Martin", "Bernard", "Dubois", "Thomas", "Robert", "Richard", "Petit", "Durand", "Leroy", "Moreau",
	"Simon", "Laurent", "Lefebvre", "Michel", "Garcia", "David", "Bertrand", "Roux", "Vincent", "Fournier",
}

var departments = []string{"Logistique", "Livraison", "Maintenance", "Commercial", "Direction"}

var carModels = map[string][]string{
	"Renault":    {"Clio", "Mégane", "Kangoo", "Master"},
	"Peugeot":    {"208", "308", "Partner", "Expert"},
	"Citroën":    {"C3", "Berlingo", "Jumpy"},
	"Volkswagen": {"Golf", "Polo", "Transporter"},
}

func GenerateRandomFrenchName() (string, string) {
	return commonFirstNames[rand.Intn(len(commonFirstNames))], commonLastNames[rand.Intn(len(commonLastNames))]
}

// EmailFromName lower-cases the name and drops accents so the local part
// stays plain ASCII.
func EmailFromName(firstName, lastName, emailDomainName string) string {
	replacer := strings.NewReplacer("é", "e", "è", "e", "ë", "e", "ç", "c", "ï", "i", " ", "-")
	local := replacer.Replace(strings.ToLower(firstName + "." + lastName))
	return local + "@" + emailDomainName
}

var roles = []domain.Role{
	domain.RoleAdmin,
	domain.RoleManager,
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

var digits = "0123456789"
var upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func GenerateRandomEmployee(password string, emailDomainName string) (*domain.Employee, error) {
	firstName, lastName := GenerateRandomFrenchName()
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	employee := &domain.Employee{
		Email:        EmailFromName(firstName, lastName+GenerateRandomDigits(3), emailDomainName),
		PasswordHash: string(passwordHash),
		FirstName:    firstName,
		LastName:     lastName,
		Role:         GenerateRandomRole(),
	}

	return employee, nil
}

// GenerateRandomOperator builds operator number n. Employee numbers follow
// the EMP001 pattern used by the console.
func GenerateRandomOperator(n int, emailDomainName string) *domain.Operator {
	firstName, lastName := GenerateRandomFrenchName()
	department := departments[rand.Intn(len(departments))]

	operator := &domain.Operator{
		EmployeeNumber: fmt.Sprintf("EMP%03d", n),
		FirstName:      firstName,
		LastName:       lastName,
		Department:     &department,
		IsActive:       rand.Intn(10) > 0,
	}

	// not every operator has a professional address
	if rand.Intn(3) > 0 {
		email := EmailFromName(firstName, lastName+fmt.Sprint(n), emailDomainName)
		operator.Email = &email
	}
	if rand.Intn(2) == 0 {
		phone := "06" + GenerateRandomDigits(8)
		operator.Phone = &phone
	}

	return operator
}

func GenerateRandomLicensePlate() string {
	letter := func() byte { return upperLetters[rand.Intn(len(upperLetters))] }
	return fmt.Sprintf("%c%c-%s-%c%c", letter(), letter(), GenerateRandomDigits(3), letter(), letter())
}

func GenerateRandomCar() *domain.Car {
	brands := make([]string, 0, len(carModels))
	for brand := range carModels {
		brands = append(brands, brand)
	}
	brand := brands[rand.Intn(len(brands))]
	models := carModels[brand]

	status := domain.CarStatusActive
	switch rand.Intn(10) {
	case 0:
		status = domain.CarStatusMaintenance
	case 1:
		status = domain.CarStatusRetired
	}

	return &domain.Car{
		LicensePlate: GenerateRandomLicensePlate(),
		Brand:        brand,
		Model:        models[rand.Intn(len(models))],
		Status:       status,
	}
}

func GenerateRandomDigits(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = digits[rand.Intn(len(digits))]
	}
	return string(b)
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

// GenerateRandomPassword always includes an upper-case letter, a lower-case
// letter and a digit so the result passes the password rule.
func GenerateRandomPassword(length int) string {
	if length < 3 {
		length = 3
	}
	randomPassword := make([]rune, length)
	for i := range randomPassword {
		randomPassword[i] = letters[rand.Intn(len(letters))]
	}
	randomPassword[0] = rune(upperLetters[rand.Intn(len(upperLetters))])
	randomPassword[1] = rune(strings.ToLower(upperLetters)[rand.Intn(len(upperLetters))])
	randomPassword[2] = rune(digits[rand.Intn(len(digits))])

	rand.Shuffle(len(randomPassword), func(i, j int) {
		randomPassword[i], randomPassword[j] = randomPassword[j], randomPassword[i]
	})
	return string(randomPassword)
}
