package roads

import (
	"fmt"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"io"
	"sort"
)

// DescribedTags are the tags whose value distribution is of interest when looking for bicycle infrastructure.
var DescribedTags = []string{"highway", "sidewalk", "bicycle", "lanes", "oneway", "cycleway", "RLIS:bicycle", "source:bicycle"}

type Frequency struct {
	Value string
	Count int
}

// TagFrequencies counts how many roads carry each tag key.
func TagFrequencies(roads []*Road) map[string]int {
	frequencies := map[string]int{}
	for _, road := range roads {
		for key := range road.Tags {
			frequencies[key]++
		}
	}
	return frequencies
}

// TagValueFrequencies counts how often each value of the given key occurs. Roads without this key are counted for the
// empty value.
func TagValueFrequencies(roads []*Road, key string) map[string]int {
	frequencies := map[string]int{}
	for _, road := range roads {
		frequencies[road.Tag(key)]++
	}
	return frequencies
}

// SortByCount returns the frequencies with the most common value first. Values with equal counts are in number-aware
// order.
func SortByCount(frequencies map[string]int) []Frequency {
	result := make([]Frequency, 0, len(frequencies))
	for value, count := range frequencies {
		result = append(result, Frequency{Value: value, Count: count})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return valueIsLessThan(result[i].Value, result[j].Value)
	})

	return result
}

// ExcludeHighways returns all roads whose "highway" value is not in the given list.
func ExcludeHighways(roads []*Road, excludedHighways []string) []*Road {
	if len(excludedHighways) == 0 {
		return roads
	}

	excluded := map[string]bool{}
	for _, highway := range excludedHighways {
		excluded[highway] = true
	}

	var result []*Road
	for _, road := range roads {
		if !excluded[road.Tag("highway")] {
			result = append(result, road)
		}
	}
	return result
}

// WriteDescriptives writes the most frequent tag keys and, for each of the DescribedTags, its most frequent values.
// A limit <= 0 writes all entries.
func WriteDescriptives(roads []*Road, writer io.Writer, limit int) error {
	err := writeFrequencies(writer, SortByCount(TagFrequencies(roads)), limit)
	if err != nil {
		return err
	}

	for _, key := range DescribedTags {
		_, err = fmt.Fprintf(writer, "\n************\n %s \n************\n", key)
		if err != nil {
			return errors.Wrapf(err, "Unable to write header for tag %s", key)
		}

		valueFrequencies := TagValueFrequencies(roads, key)
		err = writeFrequencies(writer, SortByCount(valueFrequencies), limit)
		if err != nil {
			return err
		}

		if key == "bicycle" {
			sigolo.Infof("Designated: %d, Not: %d",
				valueFrequencies["designated"]+valueFrequencies["yes"],
				valueFrequencies[""]+valueFrequencies["no"])
		}
	}

	return nil
}

func writeFrequencies(writer io.Writer, frequencies []Frequency, limit int) error {
	if limit > 0 && len(frequencies) > limit {
		frequencies = frequencies[:limit]
	}

	for _, frequency := range frequencies {
		_, err := fmt.Fprintf(writer, "%s - %d\n", frequency.Value, frequency.Count)
		if err != nil {
			return errors.Wrapf(err, "Unable to write frequency of value '%s'", frequency.Value)
		}
	}

	return nil
}
