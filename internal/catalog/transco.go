package catalog

import (
	"fmt"

	"github.com/Clark-Hu/cine-map/internal/domain"
)

var departmentJobs = map[string]domain.Job{
	"Acting":     domain.JobActor,
	"Directing":  domain.JobDirector,
	"Camera":     domain.JobDirectorOfPhotography,
	"Sound":      domain.JobComposer,
	"Writing":    domain.JobScreenplay,
	"Editing":    domain.JobEditor,
	"Production": domain.JobProducer,
}

var crewJobs = map[string]domain.Job{
	"Actor":                   domain.JobActor,
	"Director":                domain.JobDirector,
	"Director of Photography": domain.JobDirectorOfPhotography,
	"Original Music Composer": domain.JobComposer,
	"Screenplay":              domain.JobScreenplay,
	"Editor":                  domain.JobEditor,
	"Producer":                domain.JobProducer,
}

var genders = [...]domain.Gender{
	domain.GenderUnknown,
	domain.GenderWoman,
	domain.GenderMan,
	domain.GenderNonBinary,
}

// JobFromDepartment maps a catalog department name (a person's known-for
// department) to the job enumeration.
func JobFromDepartment(department string) domain.Job {
	if job, ok := departmentJobs[department]; ok {
		return job
	}
	return domain.JobUnknown
}

// JobFromCrewJob maps a catalog crew job title to the job enumeration.
func JobFromCrewJob(job string) domain.Job {
	if mapped, ok := crewJobs[job]; ok {
		return mapped
	}
	return domain.JobUnknown
}

// GenderFromCode maps the catalog integer gender code (0-3) to domain.Gender.
func GenderFromCode(code int) (domain.Gender, error) {
	if code < 0 || code >= len(genders) {
		return "", fmt.Errorf("unknown gender code %d", code)
	}
	return genders[code], nil
}
