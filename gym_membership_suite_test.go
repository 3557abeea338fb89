package main_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestGymMembership(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "GymMembership Suite")
}
