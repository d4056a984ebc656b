package notebooks

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestNotebooks(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notebooks Suite")
}
