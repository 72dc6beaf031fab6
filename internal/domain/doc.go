// Package domain turns the public CoWIN vaccination CSV feeds into per-entity,
// date-ordered, fully derived time series.
//
// # Data Sources
//
// Both feeds are published as CSV by the covid19india.org volunteer project
// (https://api.covid19india.org/csv/latest/). The service fetches them on a
// fixed interval and recomputes everything from scratch on every refresh.
//
// # District Feed (wide format)
//
// One row per district, six identity columns followed by one ten-column block
// per reporting date:
//
//	col 0  S No.        (blank on the Lakshadweep placeholder row)
//	col 1  State_Code
//	col 2  State
//	col 3  District_Key  e.g. "AP_Anantapur"
//	col 4  Cowin Key     opaque upstream key, see [DistrictSeries.SourceKeys]
//	col 5  District
//	col 6+ blocks of 10: registered, sessions, sites, first dose, second dose,
//	       male, female, transgender, covaxin, covishield
//
// Header row 0 repeats the block's date over every column of the block; header
// row 1 carries the block's field names. Data starts at row 2. The block layout
// is resolved once per run by [ResolveSchema].
//
// The district feed has no total-dose column; total doses are computed as
// first dose + second dose.
//
// # State Feed (long format)
//
// One row per (date, region) with named columns:
//
//	Updated On                          DD/MM/YYYY
//	State                               "India" is the whole-country row stream
//	Total Doses Administered            used for trimming
//	First Dose Administered, Second Dose Administered, Total Sessions Conducted,
//	Total Sites (published with a trailing space), Male/Female/Transgender
//	(Individuals Vaccinated), Total Covaxin/CoviShield/Sputnik V Administered,
//	18-45/45-60/60+ years (Age), AEFI, Total Individuals Vaccinated
//
// The nation series is reported directly by the feed. It is never computed
// as a sum of states.
//
// # Not-yet-reported Dates
//
// Both feeds publish rows for the current date before every region has
// reported. Those cells are blank or "0". Trailing dates whose total-dose
// counter is zero are trimmed from each entity so a late report is not read
// as a collapse to zero. Zeros in the middle of a series are kept.
//
// # Derived Metrics
//
// Every metric gets a day-over-day delta and a 7-day rolling average computed
// from its cumulative counter (see [Derive]):
//
//	Delta[0]       = value[0]
//	Delta[i]       = value[i] - value[i-1]
//	RollingAvg7[i] = value[i] / (i+1)              for i < 7
//	RollingAvg7[i] = (value[i] - value[i-7]) / 7   for i >= 7
//
// Negative deltas are upstream corrections. They pass through unchanged and
// are reported by [CheckSeries].
//
// # Duplicate Districts
//
// Boundary changes leave some districts reported under several legacy rows.
// Rows sharing a normalized district|state name are folded into one series by
// [MergeDuplicates].
package domain
